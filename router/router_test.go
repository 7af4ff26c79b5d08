// router/router_test.go
package router_test

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"go-auth-api/app"
	"go-auth-api/config"
	"go-auth-api/logger"
	"go-auth-api/model"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

var testApp *app.TestApp

// TestMain spins the suite up against a live test database. Set
// INTEGRATION_TESTS=1 and run docker-compose up first; without it the
// package exits cleanly so unit runs stay green.
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		fmt.Println("router: skipping integration tests (INTEGRATION_TESTS not set)")
		os.Exit(0)
	}

	logger.Init()
	config.LoadConfig("../")

	testDbConnStr := fmt.Sprintf("postgres://%s:%s@localhost:5434/%s_test?sslmode=disable",
		config.AppConfig.Database.User,
		config.AppConfig.Database.Password,
		config.AppConfig.Database.Name,
	)
	db, err := sql.Open("postgres", testDbConnStr)
	if err != nil {
		log.Fatalf("could not connect to test database: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		log.Fatalf("database not ready: %v", err)
	}
	runMigrations(testDbConnStr)

	testApp = app.NewTestApp(db, nil)

	exitCode := m.Run()

	db.Close()
	os.Exit(exitCode)
}

func runMigrations(connStr string) {
	migrationPath := "file://../db/migrations"
	mig, err := migrate.New(migrationPath, connStr)
	if err != nil {
		log.Fatalf("cannot create migrate instance: %v", err)
	}
	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("failed to run migrate up: %v", err)
	}
}

// --- Test Helper Functions ---

func doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "integration-test/1.0")
	rr := httptest.NewRecorder()
	testApp.Router.ServeHTTP(rr, req)
	return rr
}

func createUserForTest(t *testing.T, username, email, password string) model.User {
	body := fmt.Sprintf(`{"username": %q, "email": %q, "password": %q}`, username, email, password)
	rr := doJSON(t, "POST", "/v1/users", body)
	assert.Equal(t, http.StatusOK, rr.Code, "user creation should succeed")

	var user model.User
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	return user
}

func issueTokenForTest(t *testing.T, userID string) (string, model.Token) {
	body := fmt.Sprintf(`{"user_id": %q}`, userID)
	rr := doJSON(t, "POST", "/v1/tokens", body)
	assert.Equal(t, http.StatusOK, rr.Code, "token issuance should succeed")

	var response model.TokenResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Token, "issuance must return the raw secret")
	return response.Token, *response.Record
}

func cleanupUser(t *testing.T, username string) {
	_, err := testApp.DB.Exec("DELETE FROM tokens WHERE user_id IN (SELECT id FROM users WHERE username = $1)", username)
	assert.NoError(t, err)
	_, err = testApp.DB.Exec("DELETE FROM users WHERE username = $1", username)
	assert.NoError(t, err)
}

// --- Test Suites ---

func TestCreateUser_Integration(t *testing.T) {
	defer cleanupUser(t, "integration_user")

	user := createUserForTest(t, "integration_user", "integration@test.com", "password123")
	assert.Equal(t, "integration_user", user.Username)

	var storedHash string
	err := testApp.DB.QueryRow("SELECT password_hash FROM users WHERE username = $1", "integration_user").Scan(&storedHash)
	assert.NoError(t, err)
	assert.NotEqual(t, "password123", storedHash, "the plaintext must never be persisted")
	assert.True(t, strings.HasPrefix(storedHash, "$argon2id$"))

	t.Run("password hash is not exposed in the response", func(t *testing.T) {
		rr := doJSON(t, "GET", "/v1/users/"+user.ID.String(), "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "password")
		assert.NotContains(t, rr.Body.String(), storedHash)
	})
}

func TestGetUser_Integration(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		rr := doJSON(t, "GET", "/v1/users/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	t.Run("unknown id", func(t *testing.T) {
		rr := doJSON(t, "GET", "/v1/users/00000000-0000-0000-0000-000000000000", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestLogin_Integration(t *testing.T) {
	createUserForTest(t, "login_user", "login@test.com", "password123")
	defer cleanupUser(t, "login_user")

	t.Run("successful login", func(t *testing.T) {
		rr := doJSON(t, "POST", "/v1/users/login", `{"username": "login_user", "password": "password123"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("wrong password and unknown username are indistinguishable", func(t *testing.T) {
		wrongPass := doJSON(t, "POST", "/v1/users/login", `{"username": "login_user", "password": "wrongpassword"}`)
		unknownUser := doJSON(t, "POST", "/v1/users/login", `{"username": "no_such_user", "password": "password123"}`)

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		assert.Equal(t, wrongPass.Body.String(), unknownUser.Body.String())
	})
}

func TestPatchUser_Integration(t *testing.T) {
	user := createUserForTest(t, "patch_user", "patch@test.com", "password123")
	defer cleanupUser(t, "patch_user")

	rr := doJSON(t, "PATCH", "/v1/users/"+user.ID.String(), `{"email": "patched@test.com", "password": "newpassword1"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	t.Run("old password no longer works", func(t *testing.T) {
		rr := doJSON(t, "POST", "/v1/users/login", `{"username": "patch_user", "password": "password123"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
	t.Run("new password works", func(t *testing.T) {
		rr := doJSON(t, "POST", "/v1/users/login", `{"username": "patch_user", "password": "newpassword1"}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestTokenLifecycle_Integration(t *testing.T) {
	user := createUserForTest(t, "token_user", "token@test.com", "password123")
	defer cleanupUser(t, "token_user")

	raw, record := issueTokenForTest(t, user.ID.String())
	assert.Equal(t, user.ID, record.UserID)

	t.Run("issued token authenticates requests", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/v1/tokens?user_id="+user.ID.String(), nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rr := httptest.NewRecorder()
		testApp.Router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("refresh rotates the chain", func(t *testing.T) {
		rr := doJSON(t, "POST", "/v1/tokens/refresh", fmt.Sprintf(`{"token": %q}`, raw))
		assert.Equal(t, http.StatusOK, rr.Code)

		var refreshed model.TokenResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &refreshed))
		assert.NotEqual(t, raw, refreshed.Token)
		if assert.NotNil(t, refreshed.Record.PreviousTokenID) {
			assert.Equal(t, record.ID, *refreshed.Record.PreviousTokenID)
		}

		// The stored chain links forward as well.
		var replacedBy string
		err := testApp.DB.QueryRow("SELECT replaced_by FROM tokens WHERE id = $1", record.ID).Scan(&replacedBy)
		assert.NoError(t, err)
		assert.Equal(t, refreshed.Record.ID.String(), replacedBy)

		t.Run("the retired token is rejected", func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/v1/tokens", nil)
			req.Header.Set("Authorization", "Bearer "+raw)
			rr := httptest.NewRecorder()
			testApp.Router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})

		t.Run("a second refresh of the retired token conflicts", func(t *testing.T) {
			rr := doJSON(t, "POST", "/v1/tokens/refresh", fmt.Sprintf(`{"token": %q}`, raw))
			assert.Equal(t, http.StatusConflict, rr.Code)
		})

		t.Run("replay takes the replacement down with it", func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/v1/tokens", nil)
			req.Header.Set("Authorization", "Bearer "+refreshed.Token)
			rr := httptest.NewRecorder()
			testApp.Router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	})
}

func TestRevokeToken_Integration(t *testing.T) {
	user := createUserForTest(t, "revoke_user", "revoke@test.com", "password123")
	defer cleanupUser(t, "revoke_user")

	raw, _ := issueTokenForTest(t, user.ID.String())

	rr := doJSON(t, "POST", "/v1/tokens/revoke", fmt.Sprintf(`{"token": %q}`, raw))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req, _ := http.NewRequest("GET", "/v1/tokens", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	recorder := httptest.NewRecorder()
	testApp.Router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
