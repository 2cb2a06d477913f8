package handlers

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type fakeWsReader struct {
	frames        []string
	reads         int
	deadline      time.Time
	readBeforeArm bool
}

func (f *fakeWsReader) SetReadDeadline(t time.Time) error {
	f.deadline = t
	return nil
}

func (f *fakeWsReader) ReadJSON(v interface{}) error {
	if f.deadline.IsZero() {
		f.readBeforeArm = true
	}
	if f.reads >= len(f.frames) {
		return os.ErrDeadlineExceeded
	}
	frame := f.frames[f.reads]
	f.reads++
	return json.Unmarshal([]byte(frame), v)
}

func signTestToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestAwaitAuthAcceptsValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	userID := uuid.New()
	conn := &fakeWsReader{frames: []string{`{"type":"auth","token":"` + signTestToken(t, userID) + `"}`}}

	got, err := awaitAuth(conn)
	if err != nil {
		t.Fatalf("awaitAuth() error: %v", err)
	}
	if got != userID {
		t.Errorf("awaitAuth() = %s, want %s", got, userID)
	}
}

func TestAwaitAuthArmsDeadlineBeforeReading(t *testing.T) {
	conn := &fakeWsReader{}

	if _, err := awaitAuth(conn); err == nil {
		t.Fatal("a silent client must not authenticate")
	}
	if conn.deadline.IsZero() {
		t.Error("read deadline must be armed before the auth frame is awaited")
	}
	if conn.readBeforeArm {
		t.Error("auth frame was read before the deadline was armed")
	}
}

func TestAwaitAuthRejectsNonAuthFirstFrame(t *testing.T) {
	conn := &fakeWsReader{frames: []string{`{"type":"hello"}`}}

	if _, err := awaitAuth(conn); err == nil {
		t.Error("a first frame other than auth must be rejected")
	}
}

func TestAwaitAuthRejectsBadToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	conn := &fakeWsReader{frames: []string{`{"type":"auth","token":"not-a-jwt"}`}}

	if _, err := awaitAuth(conn); err == nil {
		t.Error("a malformed token must be rejected")
	}
}
