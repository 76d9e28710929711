package testutil

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/metadata"

	"blogPlatform/internal/db"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The name is suffixed so parallel tests never share a database.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// Shared cache keeps every pooled connection on the same in-memory database.
	dsn := "file:" + name + "_" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared"
	d, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// One connection avoids shared-cache table locks between concurrent writers.
	d.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// Logger returns a zap logger writing through t.Log.
func Logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
}

// GenerateJWTHS256 returns a signed JWT string with the claims used by the app.
func GenerateJWTHS256(t *testing.T, secret string, id int64, name, kind, role string) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(id, 10),
		"name": name,
		"kind": kind,
		"role": role,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}

// InsertUser seeds an active end user with no password and returns its id.
func InsertUser(t *testing.T, d *sql.DB, username string) int64 {
	t.Helper()
	res, err := d.Exec(`INSERT INTO users (username, email, display_name) VALUES (?,?,?)`, username, username+"@example.com", username)
	if err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

// InsertAdmin seeds an active admin with the given role and password hash.
func InsertAdmin(t *testing.T, d *sql.DB, username, role, passwordHash string) int64 {
	t.Helper()
	res, err := d.Exec(`INSERT INTO admin_users (username, password_hash, role) VALUES (?,?,?)`, username, passwordHash, role)
	if err != nil {
		t.Fatalf("insert admin %s: %v", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

// InsertPost seeds a visible post and returns its id.
func InsertPost(t *testing.T, d *sql.DB, authorID int64, title string) int64 {
	t.Helper()
	res, err := d.Exec(`INSERT INTO blog_posts (author_id, title, content) VALUES (?,?,?)`, authorID, title, "<p>"+title+"</p>")
	if err != nil {
		t.Fatalf("insert post %s: %v", title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}
