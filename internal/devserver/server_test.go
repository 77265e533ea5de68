package devserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
	"github.com/oremus-labs/ol-power-client/internal/credentials"
	"github.com/oremus-labs/ol-power-client/internal/devserver"
	"github.com/oremus-labs/ol-power-client/internal/pipeline"
	"github.com/oremus-labs/ol-power-client/internal/powerapi"
	"github.com/oremus-labs/ol-power-client/internal/store"
	"github.com/oremus-labs/ol-power-client/internal/stream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stack struct {
	srv       *httptest.Server
	client    *powerapi.Client
	creds     *credentials.Store
	redirects *atomic.Int32
}

func newStack(t *testing.T) *stack {
	t.Helper()
	srv := httptest.NewServer(devserver.NewServer(devserver.Options{StreamChunks: 3}).Engine())
	t.Cleanup(srv.Close)

	creds := credentials.New(store.NewMemory())
	redirects := &atomic.Int32{}
	p, err := pipeline.New(pipeline.Options{
		BaseURL:     srv.URL,
		Credentials: creds,
		Redirector:  pipeline.RedirectFunc(func(context.Context) { redirects.Add(1) }),
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	client := powerapi.New(p, stream.New(p, stream.Options{}), creds)
	return &stack{srv: srv, client: client, creds: creds, redirects: redirects}
}

func (s *stack) login(t *testing.T) {
	t.Helper()
	if _, err := s.client.Login(context.Background(), powerapi.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestProtectedCallsAfterLogin(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	s.login(t)
	ctx := context.Background()

	services, err := s.client.Services(ctx)
	if err != nil {
		t.Fatalf("Services: %v", err)
	}
	if len(services) != 7 {
		t.Fatalf("expected 7 service types got %d", len(services))
	}

	svc, err := s.client.ServiceByID(ctx, "2")
	if err != nil {
		t.Fatalf("ServiceByID: %v", err)
	}
	if svc.ID != 2 {
		t.Fatalf("unexpected service %+v", svc)
	}

	upd := powerapi.ElectricityUpdate{DataType: "resident", Period: "day", PeriodDate: "2026-10-17", Amount: 0.52, Count: 11}
	if err := s.client.UpdateElectricityData(ctx, upd); err != nil {
		t.Fatalf("UpdateElectricityData: %v", err)
	}
	mon, err := s.client.ElectricityData(ctx)
	if err != nil {
		t.Fatalf("ElectricityData: %v", err)
	}
	if mon.Resident.DayAmount != 0.52 || mon.Resident.DayCount != 11 || mon.NonResident.DayAmount != 1.14 {
		t.Fatalf("unexpected monitor data %+v", mon)
	}

	status, err := s.client.SystemStatus(ctx)
	if err != nil {
		t.Fatalf("SystemStatus: %v", err)
	}
	if status.Status != "running" {
		t.Fatalf("unexpected status %+v", status)
	}

	popular, err := s.client.PopularQuestions(ctx)
	if err != nil {
		t.Fatalf("PopularQuestions: %v", err)
	}
	if len(popular) == 0 || popular[0].HitCount < popular[len(popular)-1].HitCount {
		t.Fatalf("unexpected popular ordering %+v", popular)
	}
}

func TestRejectedServiceLookup(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	s.login(t)

	_, err := s.client.ServiceByID(context.Background(), "99")
	var remote *apierr.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected remote error got %v", err)
	}
	if remote.Status != http.StatusBadRequest || remote.Message != "service not found" {
		t.Fatalf("unexpected remote error %+v", remote)
	}
}

func TestStaleTokenTearsDownSession(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	ctx := context.Background()
	if err := s.creds.Save(ctx, credentials.Session{Token: "stale", Username: "admin", Role: "ADMIN"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := s.client.Services(ctx)
	if !errors.Is(err, apierr.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated got %v", err)
	}
	sess, err := s.creds.Session(ctx)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess != (credentials.Session{}) {
		t.Fatalf("expected every key cleared got %+v", sess)
	}
	if n := s.redirects.Load(); n != 1 {
		t.Fatalf("expected one redirect got %d", n)
	}
}

func TestStreamChatMatchesPlainChat(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	s.login(t)
	ctx := context.Background()

	const prompt = "我家电表计量好像不准"
	want, err := s.client.Chat(ctx, prompt)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var chunks []string
	for chunk, err := range s.client.StreamChatSeq(ctx, prompt) {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks got %d: %q", len(chunks), chunks)
	}
	if got := strings.Join(chunks, ""); got != want {
		t.Fatalf("stream answer %q differs from chat answer %q", got, want)
	}
}

func TestStreamWithoutLoginIsUnauthenticated(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	var got error
	for _, err := range s.client.StreamChatSeq(context.Background(), "hello") {
		got = err
	}
	if !errors.Is(got, apierr.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated got %v", got)
	}
}

func TestFaceRegistrationAndLogin(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	s.login(t)
	ctx := context.Background()

	faceData, err := powerapi.EncodeFacePoints([]powerapi.FacePoint{{X: 10, Y: 20}, {X: 11, Y: 21}})
	if err != nil {
		t.Fatalf("EncodeFacePoints: %v", err)
	}
	registered, err := s.client.RegisterFace(ctx, "operator", faceData)
	if err != nil || !registered {
		t.Fatalf("RegisterFace: %v %v", registered, err)
	}
	has, err := s.client.CheckFaceRegistered(ctx, "2")
	if err != nil || !has {
		t.Fatalf("CheckFaceRegistered: %v %v", has, err)
	}

	if err := s.client.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	res, err := s.client.FaceLogin(ctx, powerapi.FaceLoginRequest{FaceData: faceData})
	if err != nil {
		t.Fatalf("FaceLogin: %v", err)
	}
	if res.User.Username != "operator" {
		t.Fatalf("unexpected face login user %+v", res.User)
	}
	sess, err := s.creds.Session(ctx)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.Username != "operator" || sess.Role != "USER" || !sess.Authenticated {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestUserLifecycle(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	s.login(t)
	ctx := context.Background()

	user, err := s.client.UserByUsername(ctx, "operator")
	if err != nil {
		t.Fatalf("UserByUsername: %v", err)
	}
	id := "2"
	updated, err := s.client.UpdateUser(ctx, id, powerapi.User{Phone: "13800000000", IsActive: true})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Phone != "13800000000" || updated.Username != user.Username {
		t.Fatalf("unexpected update %+v", updated)
	}
	if err := s.client.DeleteUser(ctx, id); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	_, err = s.client.UserByID(ctx, id)
	var remote *apierr.RemoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusNotFound {
		t.Fatalf("expected 404 remote error got %v", err)
	}
}

func TestChatHistoryRecordsExchanges(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	s.login(t)
	ctx := context.Background()

	res, err := s.client.SendMessage(ctx, powerapi.ChatRequest{Message: "我要报修", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if res.ServiceType != "故障报修" || !res.NeedMoreInfo || res.SessionID != "s-1" {
		t.Fatalf("unexpected chat response %+v", res)
	}
	history, err := s.client.ChatHistory(ctx, "s-1")
	if err != nil {
		t.Fatalf("ChatHistory: %v", err)
	}
	if len(history) != 1 || history[0].UserMessage != "我要报修" {
		t.Fatalf("unexpected history %+v", history)
	}
	if err := s.client.ChatHealth(ctx); err != nil {
		t.Fatalf("ChatHealth: %v", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	s.login(t)

	resp, err := http.Get(s.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "power_stub_http_requests_total") {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	t.Parallel()

	s := newStack(t)
	for path, want := range map[string]string{
		"/openapi":      `"/api/chat/stream"`,
		"/openapi.yaml": "/api/chat/stream:",
	} {
		resp, err := http.Get(s.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), want) {
			t.Fatalf("GET %s: document missing %s", path, want)
		}
	}
}
