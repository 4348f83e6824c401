package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Actor identifies who is operating the console. Forms read it to fill
// ownership fields such as created_by and college.
type Actor struct {
	UserID    string
	CollegeID string
}

// IsZero reports whether neither id is known.
func (a Actor) IsZero() bool {
	return a.UserID == "" && a.CollegeID == ""
}

// Value returns the actor attribute named by key ("user_id" or "college_id").
func (a Actor) Value(key string) string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "user_id", "user":
		return a.UserID
	case "college_id", "college":
		return a.CollegeID
	default:
		return ""
	}
}

// ActorFromToken reads the user_id and college_id claims of a session
// token. The signature is not verified: the backend does that on every
// request, the console only needs the ids for display and defaults.
func ActorFromToken(token string) (Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Actor{}, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Actor{}, fmt.Errorf("parse session token: %w", err)
	}
	return Actor{
		UserID:    claimString(claims, "user_id"),
		CollegeID: claimString(claims, "college_id"),
	}, nil
}

// ResolveActor combines pinned session ids with token claims. Pinned ids win.
func ResolveActor(session SessionConfig, token string) (Actor, error) {
	actor, err := ActorFromToken(token)
	if session.UserID != "" {
		actor.UserID = session.UserID
	}
	if session.CollegeID != "" {
		actor.CollegeID = session.CollegeID
	}
	return actor, err
}

func claimString(claims jwt.MapClaims, name string) string {
	switch v := claims[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
