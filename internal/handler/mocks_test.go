package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/auth"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
	"github.com/sakif/resource-hub/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// MockAuth records the last input and returns canned results.
type MockAuth struct {
	CapturedSignup service.SignupInput
	CapturedEmail  string
	CapturedPass   string
	CapturedGitHub *auth.GitHubUser

	SignupErr  error
	LoginRes   *service.TokenResult
	LoginErr   error
	Profile    *model.UserProfile
	ProfileErr error
	GitHubRes  *service.AuthResult
	GitHubErr  error
}

func (m *MockAuth) Signup(_ context.Context, in service.SignupInput) (*model.User, error) {
	m.CapturedSignup = in
	if m.SignupErr != nil {
		return nil, m.SignupErr
	}
	return &model.User{ID: "u1", Email: in.Email, Name: in.Name}, nil
}

func (m *MockAuth) Login(_ context.Context, email, password string) (*service.TokenResult, error) {
	m.CapturedEmail, m.CapturedPass = email, password
	if m.LoginErr != nil {
		return nil, m.LoginErr
	}
	return m.LoginRes, nil
}

func (m *MockAuth) ProfileBySubject(_ context.Context, email string) (*model.UserProfile, error) {
	m.CapturedEmail = email
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	return m.Profile, nil
}

func (m *MockAuth) LoginGitHub(_ context.Context, gh *auth.GitHubUser) (*service.AuthResult, error) {
	m.CapturedGitHub = gh
	if m.GitHubErr != nil {
		return nil, m.GitHubErr
	}
	return m.GitHubRes, nil
}

type MockProvider struct {
	User *auth.GitHubUser
	Err  error
	Code string
}

func (p *MockProvider) AuthURL(state string) string {
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (p *MockProvider) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	p.Code = code
	if p.Err != nil {
		return nil, p.Err
	}
	return p.User, nil
}

// MockCatalog stands in for service.ResourceCatalog.
type MockCatalog struct {
	mu sync.Mutex

	CapturedQuery  service.ListQuery
	CapturedInput  service.ResourceInput
	CapturedOwner  string
	CapturedID     string
	CapturedPatch  repository.ResourcePatch
	CapturedUpload []byte
	UploadName     string
	UploadType     string
	Requester      string

	ListRes     []model.Resource
	Err         error
	DownloadRes *service.Download
}

func (m *MockCatalog) List(_ context.Context, q service.ListQuery) ([]model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedQuery = q
	if m.Err != nil {
		return nil, m.Err
	}
	return m.ListRes, nil
}

func (m *MockCatalog) Upload(_ context.Context, originalName, contentType string, r io.Reader) (*service.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadName, m.UploadType = originalName, contentType
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return nil, apperror.StoreUnavailable("storing file", err)
	}
	m.CapturedUpload = buf.Bytes()
	if m.Err != nil {
		return nil, m.Err
	}
	return &service.UploadResult{Filename: "generated.pdf", ContentType: "application/pdf", Size: n}, nil
}

func (m *MockCatalog) CreateMetadata(_ context.Context, in service.ResourceInput, owner string) (*model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedInput, m.CapturedOwner = in, owner
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.Resource{ID: "r1", Title: in.Title, Course: in.Course, Owner: owner}, nil
}

func (m *MockCatalog) Update(_ context.Context, id, requester string, patch repository.ResourcePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedID, m.Requester, m.CapturedPatch = id, requester, patch
	return m.Err
}

func (m *MockCatalog) Delete(_ context.Context, id, requester string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedID, m.Requester = id, requester
	return m.Err
}

func (m *MockCatalog) Download(_ context.Context, filename, requester string) (*service.Download, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedID, m.Requester = filename, requester
	if m.Err != nil {
		return nil, m.Err
	}
	return m.DownloadRes, nil
}

type MockCalendar struct {
	Captured service.EventInput
	Err      error
}

func (m *MockCalendar) Create(_ context.Context, in service.EventInput) (*model.Event, error) {
	m.Captured = in
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.Event{ID: "e1", Title: in.Title, Type: in.Type, Date: in.Date, Status: model.StatusUpcoming}, nil
}

func (m *MockCalendar) List(context.Context) []model.Event {
	return []model.Event{}
}

func (m *MockCalendar) Exams() []model.Exam {
	return []model.Exam{{ID: "1", Name: "Final", Date: "2026-05-15T09:00:00"}}
}

type MockRatings struct {
	Captured      service.RatingInput
	CapturedUser  string
	CapturedQuery string
	Err           error
}

func (m *MockRatings) Add(_ context.Context, in service.RatingInput, userEmail string) (*model.Rating, error) {
	m.Captured, m.CapturedUser = in, userEmail
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.Rating{ID: "g1", TeacherName: in.TeacherName, Subject: in.Subject, Rating: in.Rating}, nil
}

func (m *MockRatings) List(_ context.Context, teacherName string) []model.Rating {
	m.CapturedQuery = teacherName
	return []model.Rating{}
}

func (m *MockRatings) Teachers() []model.Teacher {
	return []model.Teacher{{Name: "Dr. A", Subject: "Maths"}}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }
