package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks the ID token and returns the subject UID together
// with the token claims; wallet addresses live in the claims.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, map[string]interface{}, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", nil, err
	}

	return result.UID, result.Claims, nil
}

func (f *FirebaseAuthClient) GenerateToken(ctx context.Context, uid string) (string, error) {
	token, err := f.client.CustomToken(ctx, uid)
	if err != nil {
		return "", err
	}

	return token, nil
}
