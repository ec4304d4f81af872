package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
)

func Test_userApi_login(t *testing.T) {
	a := newTestApp(t)

	usr := a.createUser(t, "User", "awe", "awe@test.cd", "LePassword1!", []string{user.RoleStudent}, true)
	a.createUser(t, "Naughty", "ndog", "ndog@test.cd", "LePassword1!", []string{user.RoleStudent}, false)

	// unknown user and wrong password are indistinguishable from the outside
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "empty payload", body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "unknown user", body: marchallObj(t, echoapiLogin{"lol", "whatever"}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "wrong password", body: marchallObj(t, echoapiLogin{usr.Username, "lol"}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "deactivated account", body: marchallObj(t, echoapiLogin{"ndog", "LePassword1!"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login with username", body: marchallObj(t, echoapiLogin{usr.Username, "LePassword1!"})},
		{name: "login with email", body: marchallObj(t, echoapiLogin{usr.Email, "LePassword1!"})},
		{name: "login is case-insensitive", body: marchallObj(t, echoapiLogin{"AWE", "LePassword1!"})},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			a.app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			var resp echoapi.LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling LoginResponse: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	a := newTestApp(t)

	usr := a.createUser(t, "User", "awe", "awe@test.cd", "", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "me", token: getToken(t, usr), wantData: marchallObj(t, usr)},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			a.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	a := newTestApp(t)

	admin := a.createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := a.createUser(t, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)

	payload := func(name, uname, email, pwd string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: name, Username: uname, Email: email,
			Password: pwd, PasswordConfirm: pwd, Roles: roles,
		})
	}

	tests := []httpTest{
		{name: "auth required", body: payload("New Guy", "newguy", "new@test.cd", "V2ryGoodPwd!"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", token: getToken(t, student), body: payload("New Guy", "newguy", "new@test.cd", "V2ryGoodPwd!"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "duplicate username", token: getToken(t, admin), body: payload("New Guy", "hero01", "new@test.cd", "V2ryGoodPwd!"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "duplicate email", token: getToken(t, admin), body: payload("New Guy", "newguy", "hero@test.cd", "V2ryGoodPwd!"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "unknown role", token: getToken(t, admin), body: payload("New Guy", "newguy", "new@test.cd", "V2ryGoodPwd!", "principal:"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"roles": "invalid roles"}),
		},
		{
			name: "common password", token: getToken(t, admin), body: payload("New Guy", "newguy", "new@test.cd", "P@ssword1"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password is too common"}),
		},
		{name: "register", token: getToken(t, admin), body: payload("New Guy", "newguy", "new@test.cd", "V2ryGoodPwd!"), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			a.app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("unmarshalling User: %v", err)
			}
			if usr.ID == "" {
				t.Error("expected a persisted user")
			}
			if !usr.Active() {
				t.Error("expected new user to be active")
			}
			if len(usr.Roles) != 1 || usr.Roles[0] != user.RoleStudent {
				t.Errorf("Roles = %v, want default student role", usr.Roles)
			}
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	a := newTestApp(t)

	path := func(params url.Values) string {
		return "/v1/users?" + params.Encode()
	}

	admin := a.createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	awe := a.createUser(t, "User", "awe001", "awe@test.cd", "", []string{user.RoleStudent}, true)
	king := a.createUser(t, "King", "user02", "king@test.cd", "", []string{user.RoleStudent}, true)
	naughty := a.createUser(t, "N Dog", "ndog01", "ndog@test.cd", "", []string{user.RoleStudent}, false)

	adminToken := getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: getToken(t, awe),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, admin, awe, king, naughty)},
		{name: "search (unknown)", path: path(url.Values{"search": {"lol"}}), token: adminToken, wantData: empty},
		{name: "search=USE", path: path(url.Values{"search": {"USE"}}), token: adminToken, wantData: marchallList(t, awe, king)},
		{name: "role (unknown)", path: path(url.Values{"role": {"lol"}}), token: adminToken, wantData: empty},
		{name: "role=admin:", path: path(url.Values{"role": {user.RoleAdmin}}), token: adminToken, wantData: marchallList(t, admin)},
		{name: "is_active=false", path: path(url.Values{"is_active": {"false"}}), token: adminToken, wantData: marchallList(t, naughty)},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			a.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDetail(t *testing.T) {
	a := newTestApp(t)

	admin := a.createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	awe := a.createUser(t, "User", "awe001", "awe@test.cd", "", []string{user.RoleStudent}, true)
	king := a.createUser(t, "King", "user02", "king@test.cd", "", []string{user.RoleStudent}, true)

	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "auth required", path: "/v1/users/" + awe.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own detail", path: "/v1/users/" + awe.ID, token: getToken(t, awe), wantData: marchallObj(t, awe)},
		{name: "admin can see others", path: "/v1/users/" + awe.ID, token: getToken(t, admin), wantData: marchallObj(t, awe)},
		{
			name: "others are hidden", path: "/v1/users/" + king.ID, token: getToken(t, awe),
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "unknown id", path: "/v1/users/4ba7cb25-6d3f-4c38-bbe5-ce26713e9a48", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: notFound,
		},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			a.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_update(t *testing.T) {
	a := newTestApp(t)

	admin := a.createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	awe := a.createUser(t, "User", "awe001", "awe@test.cd", "", []string{user.RoleStudent}, true)

	bPtr := func(b bool) *bool { return &b }

	tests := []httpTest{
		{
			name: "self can update name", path: "/v1/users/" + awe.ID, token: getToken(t, awe),
			body: marchallObj(t, map[string]string{"name": "Awe Mkali"}),
		},
		{
			name: "self cannot deactivate", path: "/v1/users/" + awe.ID, token: getToken(t, awe),
			body:     marchallObj(t, user.UpdateUser{IsActive: bPtr(false)}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "self cannot change roles", path: "/v1/users/" + awe.ID, token: getToken(t, awe),
			body:     marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "admin can change roles", path: "/v1/users/" + awe.ID, token: getToken(t, admin),
			body: marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}),
		},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			a.app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_destroy(t *testing.T) {
	a := newTestApp(t)

	admin := a.createUser(t, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	awe := a.createUser(t, "User", "awe001", "awe@test.cd", "", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{
			name: "student cannot delete", path: "/v1/users/" + awe.ID, token: getToken(t, awe),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "no suicide", path: "/v1/users/" + admin.ID, token: getToken(t, admin),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "admin deletes", path: "/v1/users/" + awe.ID, token: getToken(t, admin), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			a.app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	if _, err := a.usrSvc.GetByID(context.Background(), awe.ID); err != user.ErrNotFound {
		t.Errorf("GetByID() error = %v, want %v after delete", err, user.ErrNotFound)
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	a := newTestApp(t)

	usr := a.createUser(t, "User", "awe001", "awe@test.cd", "LePassword1!", []string{user.RoleStudent}, true)

	success := marchallObj(t, echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	type extraTest struct {
		wantMail bool
	}
	tests := []httpTest{
		{
			name: "invalid email", body: marchallObj(t, map[string]string{"email": "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		// unknown addresses get the same success response; no mail goes out
		{name: "unknown email", body: marchallObj(t, map[string]string{"email": "lol@test.cd"}), wantData: success},
		{name: "known email", body: marchallObj(t, map[string]string{"email": usr.Email}), wantData: success, extra: extraTest{wantMail: true}},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", tt.body)
			a.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok && extra.wantMail {
				if len(emailsvc.SentMessages) != 1 {
					t.Fatalf("len(SentMessages) = %d, want 1", len(emailsvc.SentMessages))
				}
				if got := emailsvc.SentMessages[0].To[0].Address; got != usr.Email {
					t.Errorf("To = %s, want %s", got, usr.Email)
				}
			} else if len(emailsvc.SentMessages) != 0 {
				t.Errorf("len(SentMessages) = %d, want 0", len(emailsvc.SentMessages))
			}
		})
	}
}

func Test_userApi_passwordResetConfirm(t *testing.T) {
	a := newTestApp(t)

	usr := a.createUser(t, "User", "awe001", "awe@test.cd", "LePassword1!", []string{user.RoleStudent}, true)

	// request a reset to capture the uid & token from the mail
	emailsvc.SentMessages = nil
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", marchallObj(t, map[string]string{"email": usr.Email}))
	a.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("password-reset failed, code = %d", rec.Code)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("len(SentMessages) = %d, want 1", len(emailsvc.SentMessages))
	}

	re := regexp.MustCompile(`password-reset\?uid=([^&\s]+)&token=([^&\s"}]+)`)
	m := re.FindStringSubmatch(fmt.Sprintf("%v", emailsvc.SentMessages[0].TemplateData))
	if len(m) != 3 {
		t.Fatalf("could not extract uid & token from mail: %v", emailsvc.SentMessages[0].TemplateData)
	}
	uid, token := m[1], m[2]

	payload := func(uid, token, pwd string) []byte {
		return marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: pwd})
	}

	tests := []httpTest{
		{
			name: "bad token", body: payload(uid, "lol-token", "N3wPassword!"),
			wantCode: http.StatusBadRequest,
		},
		{name: "reset", body: payload(uid, token, "N3wPassword!")},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", tt.body)
			a.app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	// the new password now works
	refreshed, err := a.usrSvc.GetByID(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("GetByID() failed, %v", err)
	}
	if err := refreshed.CheckPassword("N3wPassword!"); err != nil {
		t.Error("expected the new password to verify")
	}
}

type echoapiLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
