package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
	dummydb "github.com/trezcool/ratiba/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Log(msg) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Log(msg) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Log(msg) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Log(msg) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatal(msg) }

type testApp struct {
	app      echoapi.Server
	usrRepo  user.Repository
	usrSvc   *user.Service
	schedSvc *schedule.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}

	conf := &core.Config{
		TestMode:                  true,
		AppName:                   "Ratiba",
		SecretKey:                 []byte("secret"),
		WorkDir:                   filepath.Join("..", "..", ".."), // repo root
		FrontendBaseURL:           "https://ratiba.app",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Alerts: core.AlertsConfig{ClassReminderLead: 15 * time.Minute, SummaryHour: 8},
	}

	usrRepo := dummydb.NewUserRepository(db)
	usrSvc := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock(conf))
	schedSvc := schedule.NewService(dummydb.NewSubjectRepository(db), dummydb.NewTaskRepository(db))

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)

	core.ParseEmailTemplates(testLogger{t}, conf)
	user.LoadCommonPasswords(testLogger{t}, conf)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      testLogger{t},
		UserSvc:     usrSvc,
		ScheduleSvc: schedSvc,
		Validate:    validate,
		Translator:  translator,
	})

	return &testApp{
		app:      app,
		usrRepo:  usrRepo,
		usrSvc:   usrSvc,
		schedSvc: schedSvc,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (a *testApp) createUser(t *testing.T, name, uname, email, pwd string, roles []string, isActive bool) user.User {
	t.Helper()

	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    email,
		Roles:    roles,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("SetPassword() failed, %v", err)
		}
	}
	usr, err := a.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	return usr
}

func (a *testApp) createSubject(t *testing.T, userID, name string, dow time.Weekday, start, end string) schedule.Subject {
	t.Helper()

	st, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("ParseTimeOfDay() failed, %v", err)
	}
	et, err := schedule.ParseTimeOfDay(end)
	if err != nil {
		t.Fatalf("ParseTimeOfDay() failed, %v", err)
	}
	d := int(dow)
	sub, err := a.schedSvc.CreateSubject(context.Background(), userID, schedule.NewSubject{
		Name:      name,
		DayOfWeek: &d,
		StartTime: st,
		EndTime:   et,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed, %v", err)
	}
	return sub
}

func (a *testApp) createTask(t *testing.T, userID string, nt schedule.NewTask) schedule.Task {
	t.Helper()

	if nt.Priority == 0 {
		nt.Priority = schedule.PriorityMedium
	}
	task, err := a.schedSvc.CreateTask(context.Background(), userID, nt)
	if err != nil {
		t.Fatalf("CreateTask() failed, %v", err)
	}
	return task
}

func (a *testApp) toggleTask(t *testing.T, userID, id string) schedule.Task {
	t.Helper()

	task, err := a.schedSvc.ToggleTask(context.Background(), userID, id)
	if err != nil {
		t.Fatalf("ToggleTask() failed, %v", err)
	}
	return task
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := echoapi.GetUserClaims(usr)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
