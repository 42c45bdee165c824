package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/middleware"
	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/rpc"
	"github.com/mmynk/caltrack/internal/session"
	"github.com/mmynk/caltrack/internal/storage"
	"github.com/mmynk/caltrack/internal/storage/sqlite"
)

var testStart = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	auth    *rpc.AuthServiceClient
	profile *rpc.ProfileServiceClient
	diary   *rpc.DiaryServiceClient
	weight  *rpc.WeightServiceClient

	store    *sqlite.SQLiteStore
	clock    *calendar.Manual
	sessions *session.Registry
}

// setupTestServer wires every service behind the real interceptors on a
// sqlite store in a temp dir.
func setupTestServer(t *testing.T) (*testEnv, func()) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := calendar.NewManual(testStart)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	sessions := session.NewRegistry(session.Config{
		Store:  store,
		Clock:  clock,
		Logger: logger,
	}, func() *auth.Identity {
		return auth.NewIdentity(authenticator, nil)
	})

	public := connect.WithInterceptors(
		middleware.MetricsInterceptor(),
		middleware.OptionalAuth(jwtManager, sessions),
		middleware.LoggingInterceptor(logger),
	)
	private := connect.WithInterceptors(
		middleware.MetricsInterceptor(),
		middleware.RequireAuth(jwtManager, sessions),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(rpc.NewAuthServiceHandler(NewAuthService(sessions, jwtManager, logger), public))
	mux.Handle(rpc.NewProfileServiceHandler(NewProfileService(logger), private))
	mux.Handle(rpc.NewDiaryServiceHandler(NewDiaryService(logger), private))
	mux.Handle(rpc.NewWeightServiceHandler(NewWeightService(logger), private))

	server := httptest.NewServer(mux)

	env := &testEnv{
		auth:     rpc.NewAuthServiceClient(http.DefaultClient, server.URL),
		profile:  rpc.NewProfileServiceClient(http.DefaultClient, server.URL),
		diary:    rpc.NewDiaryServiceClient(http.DefaultClient, server.URL),
		weight:   rpc.NewWeightServiceClient(http.DefaultClient, server.URL),
		store:    store,
		clock:    clock,
		sessions: sessions,
	}

	cleanup := func() {
		server.Close()
		sessions.Shutdown(context.Background())
		store.Close()
	}
	return env, cleanup
}

// authed builds a request carrying token.
func authed[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil error", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected %v, got %v (%v)", want, got, err)
	}
}

func register(t *testing.T, env *testEnv, email string) *rpc.AuthResponse {
	t.Helper()
	resp, err := env.auth.Register(context.Background(), connect.NewRequest(&rpc.RegisterRequest{
		Email:       email,
		DisplayName: "Test User",
		Password:    "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return resp.Msg
}

func createProfile(t *testing.T, env *testEnv, token string) {
	t.Helper()
	resp, err := env.profile.CreateProfile(context.Background(), authed(token, &rpc.CreateProfileRequest{
		Name:          "Sam",
		Age:           30,
		Sex:           "male",
		Weight:        80,
		Height:        180,
		ActivityLevel: "moderate",
	}))
	if err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	if resp.Msg.Profile.DailyEnergyTarget != 2873 {
		t.Fatalf("target: expected 2873, got %d", resp.Msg.Profile.DailyEnergyTarget)
	}
}

func TestRegisterAndCreateProfile(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	reg := register(t, env, "sam@example.com")
	if reg.Token == "" {
		t.Fatal("expected a token")
	}
	if reg.State != session.NoProfile.String() {
		t.Errorf("state: expected %s, got %s", session.NoProfile, reg.State)
	}
	if reg.User == nil || reg.User.AuthMethod != models.AuthMethodEmail {
		t.Errorf("unexpected user: %+v", reg.User)
	}

	_, err := env.diary.GetLog(ctx, authed(reg.Token, &rpc.GetLogRequest{}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	createProfile(t, env, reg.Token)

	_, err = env.profile.CreateProfile(ctx, authed(reg.Token, &rpc.CreateProfileRequest{
		Name: "Again", Age: 30, Sex: "male", Weight: 80, Height: 180, ActivityLevel: "moderate",
	}))
	assertCode(t, err, connect.CodeAlreadyExists)

	got, err := env.profile.GetProfile(ctx, authed(reg.Token, &rpc.GetProfileRequest{}))
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Msg.ActivityLabel != "Moderate activity" || got.Msg.State != session.SignedIn.String() {
		t.Errorf("unexpected profile response: %+v", got.Msg)
	}

	// Duplicate account.
	_, err = env.auth.Register(ctx, connect.NewRequest(&rpc.RegisterRequest{
		Email: "SAM@example.com", DisplayName: "Dup", Password: "correct-horse",
	}))
	assertCode(t, err, connect.CodeAlreadyExists)
}

func TestRequiresToken(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	_, err := env.diary.GetLog(context.Background(), connect.NewRequest(&rpc.GetLogRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.diary.GetLog(context.Background(), authed("not-a-jwt", &rpc.GetLogRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestLoginBadPassword(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	register(t, env, "pw@example.com")

	_, err := env.auth.Login(context.Background(), connect.NewRequest(&rpc.LoginRequest{
		Email: "pw@example.com", Password: "wrong-password",
	}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestLoginFederatedWithoutToken(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()

	resp, err := env.auth.LoginFederated(context.Background(), connect.NewRequest(&rpc.LoginFederatedRequest{}))
	if err != nil {
		t.Fatalf("LoginFederated failed: %v", err)
	}
	if !resp.Msg.Pending || resp.Msg.Token != "" {
		t.Errorf("expected a pending response, got %+v", resp.Msg)
	}
	if env.sessions.Len() != 0 {
		t.Errorf("pending sign-in left %d sessions open", env.sessions.Len())
	}

	_, err = env.auth.LoginFederated(context.Background(), connect.NewRequest(&rpc.LoginFederatedRequest{IDToken: "x"}))
	assertCode(t, err, connect.CodeUnimplemented)
}

func TestDiaryFlow(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	reg := register(t, env, "diary@example.com")
	createProfile(t, env, reg.Token)

	// Apple is 52 kcal/100 g.
	added, err := env.diary.AddFood(ctx, authed(reg.Token, &rpc.AddFoodRequest{
		FoodID: "f1", Grams: 200, Meal: models.Breakfast,
	}))
	if err != nil {
		t.Fatalf("AddFood failed: %v", err)
	}
	if added.Msg.Entry.Calories != 104 || added.Msg.Entry.FoodName != "Apple" {
		t.Errorf("unexpected entry: %+v", added.Msg.Entry)
	}
	if added.Msg.Progress.Consumed != 104 || added.Msg.Progress.Remaining != 2769 {
		t.Errorf("unexpected progress: %+v", added.Msg.Progress)
	}

	custom := 500
	if _, err := env.diary.AddFood(ctx, authed(reg.Token, &rpc.AddFoodRequest{
		FoodName: "Burrito", Grams: 300, Calories: &custom, Meal: models.Lunch,
	})); err != nil {
		t.Fatalf("AddFood (custom) failed: %v", err)
	}

	_, err = env.diary.AddFood(ctx, authed(reg.Token, &rpc.AddFoodRequest{
		FoodName: "Mystery", Grams: 100, Meal: models.Lunch,
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = env.diary.AddFood(ctx, authed(reg.Token, &rpc.AddFoodRequest{
		FoodID: "nope", Grams: 100, Meal: models.Lunch,
	}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = env.diary.AddFood(ctx, authed(reg.Token, &rpc.AddFoodRequest{
		FoodID: "f1", Grams: 100, Meal: "brunch",
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	log, err := env.diary.GetLog(ctx, authed(reg.Token, &rpc.GetLogRequest{Date: "2024-03-10"}))
	if err != nil {
		t.Fatalf("GetLog failed: %v", err)
	}
	if log.Msg.Log.TotalCalories != 604 || len(log.Msg.Log.Entries) != 2 {
		t.Errorf("unexpected log: %+v", log.Msg.Log)
	}

	removed, err := env.diary.RemoveFood(ctx, authed(reg.Token, &rpc.RemoveFoodRequest{EntryID: added.Msg.Entry.ID}))
	if err != nil {
		t.Fatalf("RemoveFood failed: %v", err)
	}
	if !removed.Msg.Removed || removed.Msg.Log.TotalCalories != 500 {
		t.Errorf("unexpected remove response: %+v", removed.Msg)
	}
	again, err := env.diary.RemoveFood(ctx, authed(reg.Token, &rpc.RemoveFoodRequest{EntryID: added.Msg.Entry.ID}))
	if err != nil || again.Msg.Removed {
		t.Errorf("second remove: %+v, %v", again, err)
	}

	_, err = env.diary.GetLog(ctx, authed(reg.Token, &rpc.GetLogRequest{Date: "10/03/2024"}))
	assertCode(t, err, connect.CodeInvalidArgument)

	history, err := env.diary.GetHistory(ctx, authed(reg.Token, &rpc.GetHistoryRequest{Days: 3}))
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history.Msg.Logs) != 3 || history.Msg.Target != 2873 {
		t.Fatalf("unexpected history: %+v", history.Msg)
	}
	if history.Msg.Logs[2].TotalCalories != 500 || history.Msg.Logs[0].TotalCalories != 0 {
		t.Errorf("history not zero-filled: %+v", history.Msg.Logs)
	}

	if _, err := env.diary.ClearLog(ctx, authed(reg.Token, &rpc.ClearLogRequest{})); err != nil {
		t.Fatalf("ClearLog failed: %v", err)
	}
	log, _ = env.diary.GetLog(ctx, authed(reg.Token, &rpc.GetLogRequest{}))
	if log.Msg.Log.TotalCalories != 0 {
		t.Errorf("log not cleared: %+v", log.Msg.Log)
	}
}

func TestSearchFoods(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	reg := register(t, env, "search@example.com")

	resp, err := env.diary.SearchFoods(context.Background(), authed(reg.Token, &rpc.SearchFoodsRequest{Query: "an"}))
	if err != nil {
		t.Fatalf("SearchFoods failed: %v", err)
	}
	for _, f := range resp.Msg.Foods {
		if f.Name == "Apple" {
			t.Errorf("Apple does not match %q", "an")
		}
	}
	if len(resp.Msg.Foods) == 0 {
		t.Error("expected matches for \"an\"")
	}
}

func TestHistoryRejectsOversizedWindows(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	reg := register(t, env, "window@example.com")
	createProfile(t, env, reg.Token)

	for _, days := range []int{-1, 367, 1 << 40} {
		_, err := env.diary.GetHistory(ctx, authed(reg.Token, &rpc.GetHistoryRequest{Days: days}))
		assertCode(t, err, connect.CodeInvalidArgument)
	}
	if _, err := env.diary.GetHistory(ctx, authed(reg.Token, &rpc.GetHistoryRequest{Days: 366})); err != nil {
		t.Errorf("GetHistory(366) failed: %v", err)
	}

	for _, days := range []int{-1, 3661, 1 << 40} {
		_, err := env.weight.GetHistory(ctx, authed(reg.Token, &rpc.GetWeightHistoryRequest{Days: days}))
		assertCode(t, err, connect.CodeInvalidArgument)
	}
}

func TestWeightUpdatesTargetAndWritesBack(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	reg := register(t, env, "weight@example.com")
	createProfile(t, env, reg.Token)

	latest, err := env.weight.GetLatest(ctx, authed(reg.Token, &rpc.GetLatestRequest{}))
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.Msg.Entry == nil || latest.Msg.Entry.Weight != 80 {
		t.Errorf("registration weight not seeded: %+v", latest.Msg.Entry)
	}

	added, err := env.weight.AddWeight(ctx, authed(reg.Token, &rpc.AddWeightRequest{Weight: 81}))
	if err != nil {
		t.Fatalf("AddWeight failed: %v", err)
	}
	if added.Msg.DailyEnergyTarget != 2894 {
		t.Errorf("target: expected 2894, got %d", added.Msg.DailyEnergyTarget)
	}

	_, err = env.weight.AddWeight(ctx, authed(reg.Token, &rpc.AddWeightRequest{Weight: 301}))
	assertCode(t, err, connect.CodeInvalidArgument)

	history, err := env.weight.GetHistory(ctx, authed(reg.Token, &rpc.GetWeightHistoryRequest{Days: 7}))
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history.Msg.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(history.Msg.Entries))
	}

	// Nothing reaches the store until the quiet period has passed.
	var stored models.UserDocument
	doc, err := env.store.Get(ctx, models.UsersCollection, reg.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.Decode(doc, &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.WeightEntries) != 1 {
		t.Errorf("write-back ran early: %d entries stored", len(stored.WeightEntries))
	}

	env.clock.Advance(time.Second)

	doc, err = env.store.Get(ctx, models.UsersCollection, reg.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	stored = models.UserDocument{}
	if err := storage.Decode(doc, &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.WeightEntries) != 2 || stored.Weight != 81 || stored.DailyEnergyTarget != 2894 {
		t.Errorf("write-back missing: weight=%v target=%d entries=%d",
			stored.Weight, stored.DailyEnergyTarget, len(stored.WeightEntries))
	}
}

func TestUpdateProfile(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	reg := register(t, env, "upd@example.com")
	createProfile(t, env, reg.Token)

	level := "sedentary"
	resp, err := env.profile.UpdateProfile(ctx, authed(reg.Token, &rpc.UpdateProfileRequest{ActivityLevel: &level}))
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if resp.Msg.Profile.DailyEnergyTarget != 2224 {
		t.Errorf("target: expected 2224, got %d", resp.Msg.Profile.DailyEnergyTarget)
	}

	age := 5
	_, err = env.profile.UpdateProfile(ctx, authed(reg.Token, &rpc.UpdateProfileRequest{Age: &age}))
	assertCode(t, err, connect.CodeInvalidArgument)

	bogus := "couch"
	_, err = env.profile.UpdateProfile(ctx, authed(reg.Token, &rpc.UpdateProfileRequest{ActivityLevel: &bogus}))
	assertCode(t, err, connect.CodeInvalidArgument)
}

func TestLogoutFlushesAndRevokes(t *testing.T) {
	env, cleanup := setupTestServer(t)
	defer cleanup()
	ctx := context.Background()

	reg := register(t, env, "out@example.com")
	createProfile(t, env, reg.Token)

	custom := 250
	if _, err := env.diary.AddFood(ctx, authed(reg.Token, &rpc.AddFoodRequest{
		FoodName: "Toast", Grams: 80, Calories: &custom, Meal: models.Breakfast,
	})); err != nil {
		t.Fatal(err)
	}

	if _, err := env.auth.Logout(ctx, authed(reg.Token, &rpc.LogoutRequest{})); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	doc, err := env.store.Get(ctx, models.UsersCollection, reg.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	var stored models.UserDocument
	if err := storage.Decode(doc, &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.DailyLogs) != 1 || stored.DailyLogs[0].TotalCalories != 250 {
		t.Errorf("logout did not flush: %+v", stored.DailyLogs)
	}

	_, err = env.diary.GetLog(ctx, authed(reg.Token, &rpc.GetLogRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.auth.Logout(ctx, connect.NewRequest(&rpc.LogoutRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)

	// A fresh login sees the flushed diary.
	login, err := env.auth.Login(ctx, connect.NewRequest(&rpc.LoginRequest{
		Email: "out@example.com", Password: "correct-horse",
	}))
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.Msg.State != session.SignedIn.String() {
		t.Errorf("state: expected %s, got %s", session.SignedIn, login.Msg.State)
	}
	log, err := env.diary.GetLog(ctx, authed(login.Msg.Token, &rpc.GetLogRequest{}))
	if err != nil {
		t.Fatal(err)
	}
	if log.Msg.Log.TotalCalories != 250 {
		t.Errorf("reloaded log: %+v", log.Msg.Log)
	}
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{session.ErrSignedOut, connect.CodeUnauthenticated},
		{session.ErrLoading, connect.CodeUnavailable},
		{session.ErrNoProfile, connect.CodeFailedPrecondition},
		{session.ErrProfileExists, connect.CodeAlreadyExists},
		{storage.Classify("write", context.DeadlineExceeded), connect.CodeUnavailable},
		{errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		if got := connect.CodeOf(toConnectError(tt.err)); got != tt.want {
			t.Errorf("toConnectError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
