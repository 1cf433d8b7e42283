package ssoclient

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// TokenSource returns an oauth2.TokenSource that serves sess until its access token expires and
// then rotates the refresh token. Each rotation replaces the refresh token it holds.
func (c *Client) TokenSource(ctx context.Context, sess *Session) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(sess.Token(), &rotatingSource{
		ctx:          ctx,
		client:       c,
		refreshToken: sess.RefreshToken,
	})
}

type rotatingSource struct {
	ctx    context.Context
	client *Client

	lock         sync.Mutex
	refreshToken string
}

func (r *rotatingSource) Token() (*oauth2.Token, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.refreshToken == "" {
		return nil, errors.New("ssoclient: no refresh token to rotate")
	}
	sess, err := r.client.Refresh(r.ctx, r.refreshToken)
	if err != nil {
		return nil, err
	}
	r.refreshToken = sess.RefreshToken
	return sess.Token(), nil
}
