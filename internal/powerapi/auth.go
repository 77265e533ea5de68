package powerapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/credentials"
)

// Login authenticates with a password and stores the resulting session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if _, err := requireText("username", req.Username); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, apierr.Invalid("password", "must not be blank")
	}
	var res LoginResult
	if err := c.p.Post(ctx, "/api/auth/login", req, &res); err != nil {
		return nil, err
	}
	if err := c.remember(ctx, &res, req.Username); err != nil {
		return nil, err
	}
	return &res, nil
}

// FaceLogin authenticates with captured face data and stores the session.
func (c *Client) FaceLogin(ctx context.Context, req FaceLoginRequest) (*LoginResult, error) {
	if _, err := requireText("faceData", req.FaceData); err != nil {
		return nil, err
	}
	var res LoginResult
	if err := c.p.Post(ctx, "/api/auth/face-login", req, &res); err != nil {
		return nil, err
	}
	if err := c.remember(ctx, &res, res.User.Username); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout drops the stored session.
func (c *Client) Logout(ctx context.Context) error {
	return c.sessions.Clear(ctx)
}

func (c *Client) remember(ctx context.Context, res *LoginResult, fallbackUser string) error {
	if res.Token == "" {
		return &apierr.TransportError{Detail: "login response carried no token"}
	}
	username := res.User.Username
	if username == "" {
		username = fallbackUser
	}
	role := res.User.Role
	if role == "" {
		role = "USER"
	}
	if err := c.sessions.Save(ctx, credentials.Session{Token: res.Token, Username: username, Role: role}); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// EncodeFacePoints renders points as the faceData string the backend stores.
func EncodeFacePoints(points []FacePoint) (string, error) {
	if len(points) == 0 {
		return "", apierr.Invalid("faceData", "needs at least one point")
	}
	raw, err := json.Marshal(struct {
		FacePoints []FacePoint `json:"facePoints"`
	}{points})
	if err != nil {
		return "", &apierr.ValidationError{Field: "faceData", Reason: err.Error()}
	}
	return string(raw), nil
}

// RegisterFace stores face data for a user given by numeric ID or username.
// A username is resolved to its ID first.
func (c *Client) RegisterFace(ctx context.Context, userIDOrName, faceData string) (bool, error) {
	ref, err := requireText("user", userIDOrName)
	if err != nil {
		return false, err
	}
	if _, err := requireText("faceData", faceData); err != nil {
		return false, err
	}
	id, err := parseID("user", ref)
	if err != nil {
		user, lookupErr := c.UserByUsername(ctx, ref)
		if lookupErr != nil {
			return false, lookupErr
		}
		if user == nil || user.ID <= 0 {
			return false, &apierr.RemoteError{Message: fmt.Sprintf("user %s does not exist", ref)}
		}
		id = fmt.Sprint(user.ID)
	}
	var ok bool
	body := map[string]string{"faceData": faceData}
	if err := c.p.Post(ctx, "/api/auth/register-face/"+id, body, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// CheckFaceRegistered reports whether the user has face data on file.
func (c *Client) CheckFaceRegistered(ctx context.Context, userID string) (bool, error) {
	id, err := parseID("userId", userID)
	if err != nil {
		return false, err
	}
	var registered bool
	if err := c.p.Get(ctx, "/api/auth/check-face-registered/"+id, &registered); err != nil {
		return false, err
	}
	return registered, nil
}
