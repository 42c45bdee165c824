package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	AuthServiceName    = "caltrack.v1.AuthService"
	ProfileServiceName = "caltrack.v1.ProfileService"
	DiaryServiceName   = "caltrack.v1.DiaryService"
	WeightServiceName  = "caltrack.v1.WeightService"
)

const (
	AuthServiceRegisterProcedure       = "/caltrack.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/caltrack.v1.AuthService/Login"
	AuthServiceLoginFederatedProcedure = "/caltrack.v1.AuthService/LoginFederated"
	AuthServiceLogoutProcedure         = "/caltrack.v1.AuthService/Logout"

	ProfileServiceGetProfileProcedure    = "/caltrack.v1.ProfileService/GetProfile"
	ProfileServiceCreateProfileProcedure = "/caltrack.v1.ProfileService/CreateProfile"
	ProfileServiceUpdateProfileProcedure = "/caltrack.v1.ProfileService/UpdateProfile"

	DiaryServiceGetLogProcedure      = "/caltrack.v1.DiaryService/GetLog"
	DiaryServiceAddFoodProcedure     = "/caltrack.v1.DiaryService/AddFood"
	DiaryServiceRemoveFoodProcedure  = "/caltrack.v1.DiaryService/RemoveFood"
	DiaryServiceClearLogProcedure    = "/caltrack.v1.DiaryService/ClearLog"
	DiaryServiceGetHistoryProcedure  = "/caltrack.v1.DiaryService/GetHistory"
	DiaryServiceSearchFoodsProcedure = "/caltrack.v1.DiaryService/SearchFoods"

	WeightServiceAddWeightProcedure  = "/caltrack.v1.WeightService/AddWeight"
	WeightServiceGetLatestProcedure  = "/caltrack.v1.WeightService/GetLatest"
	WeightServiceGetHistoryProcedure = "/caltrack.v1.WeightService/GetHistory"
)

// IsProcedure reports whether path belongs to the caltrack.v1 API.
func IsProcedure(path string) bool {
	return strings.HasPrefix(path, "/caltrack.v1.")
}

// handle registers one unary procedure on mux.
func handle[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}

/* ─── AuthService ────────────────────────────────────────────────────── */

// AuthServiceHandler is implemented by the auth service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error)
	LoginFederated(context.Context, *connect.Request[LoginFederatedRequest]) (*connect.Response[AuthResponse], error)
	Logout(context.Context, *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error)
}

// NewAuthServiceHandler returns the mount path and handler for svc.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, AuthServiceRegisterProcedure, svc.Register, opts)
	handle(mux, AuthServiceLoginProcedure, svc.Login, opts)
	handle(mux, AuthServiceLoginFederatedProcedure, svc.LoginFederated, opts)
	handle(mux, AuthServiceLogoutProcedure, svc.Logout, opts)
	return "/" + AuthServiceName + "/", mux
}

// AuthServiceClient calls AuthService.
type AuthServiceClient struct {
	register       *connect.Client[RegisterRequest, AuthResponse]
	login          *connect.Client[LoginRequest, AuthResponse]
	loginFederated *connect.Client[LoginFederatedRequest, AuthResponse]
	logout         *connect.Client[LogoutRequest, LogoutResponse]
}

// NewAuthServiceClient creates a client for the service at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &AuthServiceClient{
		register:       connect.NewClient[RegisterRequest, AuthResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:          connect.NewClient[LoginRequest, AuthResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		loginFederated: connect.NewClient[LoginFederatedRequest, AuthResponse](httpClient, baseURL+AuthServiceLoginFederatedProcedure, opts...),
		logout:         connect.NewClient[LogoutRequest, LogoutResponse](httpClient, baseURL+AuthServiceLogoutProcedure, opts...),
	}
}

func (c *AuthServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) LoginFederated(ctx context.Context, req *connect.Request[LoginFederatedRequest]) (*connect.Response[AuthResponse], error) {
	return c.loginFederated.CallUnary(ctx, req)
}

func (c *AuthServiceClient) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

/* ─── ProfileService ─────────────────────────────────────────────────── */

// ProfileServiceHandler is implemented by the profile service.
type ProfileServiceHandler interface {
	GetProfile(context.Context, *connect.Request[GetProfileRequest]) (*connect.Response[ProfileResponse], error)
	CreateProfile(context.Context, *connect.Request[CreateProfileRequest]) (*connect.Response[ProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[UpdateProfileRequest]) (*connect.Response[ProfileResponse], error)
}

// NewProfileServiceHandler returns the mount path and handler for svc.
func NewProfileServiceHandler(svc ProfileServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, ProfileServiceGetProfileProcedure, svc.GetProfile, opts)
	handle(mux, ProfileServiceCreateProfileProcedure, svc.CreateProfile, opts)
	handle(mux, ProfileServiceUpdateProfileProcedure, svc.UpdateProfile, opts)
	return "/" + ProfileServiceName + "/", mux
}

// ProfileServiceClient calls ProfileService.
type ProfileServiceClient struct {
	getProfile    *connect.Client[GetProfileRequest, ProfileResponse]
	createProfile *connect.Client[CreateProfileRequest, ProfileResponse]
	updateProfile *connect.Client[UpdateProfileRequest, ProfileResponse]
}

// NewProfileServiceClient creates a client for the service at baseURL.
func NewProfileServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ProfileServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ProfileServiceClient{
		getProfile:    connect.NewClient[GetProfileRequest, ProfileResponse](httpClient, baseURL+ProfileServiceGetProfileProcedure, opts...),
		createProfile: connect.NewClient[CreateProfileRequest, ProfileResponse](httpClient, baseURL+ProfileServiceCreateProfileProcedure, opts...),
		updateProfile: connect.NewClient[UpdateProfileRequest, ProfileResponse](httpClient, baseURL+ProfileServiceUpdateProfileProcedure, opts...),
	}
}

func (c *ProfileServiceClient) GetProfile(ctx context.Context, req *connect.Request[GetProfileRequest]) (*connect.Response[ProfileResponse], error) {
	return c.getProfile.CallUnary(ctx, req)
}

func (c *ProfileServiceClient) CreateProfile(ctx context.Context, req *connect.Request[CreateProfileRequest]) (*connect.Response[ProfileResponse], error) {
	return c.createProfile.CallUnary(ctx, req)
}

func (c *ProfileServiceClient) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[ProfileResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}

/* ─── DiaryService ───────────────────────────────────────────────────── */

// DiaryServiceHandler is implemented by the diary service.
type DiaryServiceHandler interface {
	GetLog(context.Context, *connect.Request[GetLogRequest]) (*connect.Response[LogResponse], error)
	AddFood(context.Context, *connect.Request[AddFoodRequest]) (*connect.Response[AddFoodResponse], error)
	RemoveFood(context.Context, *connect.Request[RemoveFoodRequest]) (*connect.Response[RemoveFoodResponse], error)
	ClearLog(context.Context, *connect.Request[ClearLogRequest]) (*connect.Response[ClearLogResponse], error)
	GetHistory(context.Context, *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error)
	SearchFoods(context.Context, *connect.Request[SearchFoodsRequest]) (*connect.Response[SearchFoodsResponse], error)
}

// NewDiaryServiceHandler returns the mount path and handler for svc.
func NewDiaryServiceHandler(svc DiaryServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, DiaryServiceGetLogProcedure, svc.GetLog, opts)
	handle(mux, DiaryServiceAddFoodProcedure, svc.AddFood, opts)
	handle(mux, DiaryServiceRemoveFoodProcedure, svc.RemoveFood, opts)
	handle(mux, DiaryServiceClearLogProcedure, svc.ClearLog, opts)
	handle(mux, DiaryServiceGetHistoryProcedure, svc.GetHistory, opts)
	handle(mux, DiaryServiceSearchFoodsProcedure, svc.SearchFoods, opts)
	return "/" + DiaryServiceName + "/", mux
}

// DiaryServiceClient calls DiaryService.
type DiaryServiceClient struct {
	getLog      *connect.Client[GetLogRequest, LogResponse]
	addFood     *connect.Client[AddFoodRequest, AddFoodResponse]
	removeFood  *connect.Client[RemoveFoodRequest, RemoveFoodResponse]
	clearLog    *connect.Client[ClearLogRequest, ClearLogResponse]
	getHistory  *connect.Client[GetHistoryRequest, GetHistoryResponse]
	searchFoods *connect.Client[SearchFoodsRequest, SearchFoodsResponse]
}

// NewDiaryServiceClient creates a client for the service at baseURL.
func NewDiaryServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *DiaryServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &DiaryServiceClient{
		getLog:      connect.NewClient[GetLogRequest, LogResponse](httpClient, baseURL+DiaryServiceGetLogProcedure, opts...),
		addFood:     connect.NewClient[AddFoodRequest, AddFoodResponse](httpClient, baseURL+DiaryServiceAddFoodProcedure, opts...),
		removeFood:  connect.NewClient[RemoveFoodRequest, RemoveFoodResponse](httpClient, baseURL+DiaryServiceRemoveFoodProcedure, opts...),
		clearLog:    connect.NewClient[ClearLogRequest, ClearLogResponse](httpClient, baseURL+DiaryServiceClearLogProcedure, opts...),
		getHistory:  connect.NewClient[GetHistoryRequest, GetHistoryResponse](httpClient, baseURL+DiaryServiceGetHistoryProcedure, opts...),
		searchFoods: connect.NewClient[SearchFoodsRequest, SearchFoodsResponse](httpClient, baseURL+DiaryServiceSearchFoodsProcedure, opts...),
	}
}

func (c *DiaryServiceClient) GetLog(ctx context.Context, req *connect.Request[GetLogRequest]) (*connect.Response[LogResponse], error) {
	return c.getLog.CallUnary(ctx, req)
}

func (c *DiaryServiceClient) AddFood(ctx context.Context, req *connect.Request[AddFoodRequest]) (*connect.Response[AddFoodResponse], error) {
	return c.addFood.CallUnary(ctx, req)
}

func (c *DiaryServiceClient) RemoveFood(ctx context.Context, req *connect.Request[RemoveFoodRequest]) (*connect.Response[RemoveFoodResponse], error) {
	return c.removeFood.CallUnary(ctx, req)
}

func (c *DiaryServiceClient) ClearLog(ctx context.Context, req *connect.Request[ClearLogRequest]) (*connect.Response[ClearLogResponse], error) {
	return c.clearLog.CallUnary(ctx, req)
}

func (c *DiaryServiceClient) GetHistory(ctx context.Context, req *connect.Request[GetHistoryRequest]) (*connect.Response[GetHistoryResponse], error) {
	return c.getHistory.CallUnary(ctx, req)
}

func (c *DiaryServiceClient) SearchFoods(ctx context.Context, req *connect.Request[SearchFoodsRequest]) (*connect.Response[SearchFoodsResponse], error) {
	return c.searchFoods.CallUnary(ctx, req)
}

/* ─── WeightService ──────────────────────────────────────────────────── */

// WeightServiceHandler is implemented by the weight service.
type WeightServiceHandler interface {
	AddWeight(context.Context, *connect.Request[AddWeightRequest]) (*connect.Response[AddWeightResponse], error)
	GetLatest(context.Context, *connect.Request[GetLatestRequest]) (*connect.Response[GetLatestResponse], error)
	GetHistory(context.Context, *connect.Request[GetWeightHistoryRequest]) (*connect.Response[GetWeightHistoryResponse], error)
}

// NewWeightServiceHandler returns the mount path and handler for svc.
func NewWeightServiceHandler(svc WeightServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, WeightServiceAddWeightProcedure, svc.AddWeight, opts)
	handle(mux, WeightServiceGetLatestProcedure, svc.GetLatest, opts)
	handle(mux, WeightServiceGetHistoryProcedure, svc.GetHistory, opts)
	return "/" + WeightServiceName + "/", mux
}

// WeightServiceClient calls WeightService.
type WeightServiceClient struct {
	addWeight  *connect.Client[AddWeightRequest, AddWeightResponse]
	getLatest  *connect.Client[GetLatestRequest, GetLatestResponse]
	getHistory *connect.Client[GetWeightHistoryRequest, GetWeightHistoryResponse]
}

// NewWeightServiceClient creates a client for the service at baseURL.
func NewWeightServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *WeightServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &WeightServiceClient{
		addWeight:  connect.NewClient[AddWeightRequest, AddWeightResponse](httpClient, baseURL+WeightServiceAddWeightProcedure, opts...),
		getLatest:  connect.NewClient[GetLatestRequest, GetLatestResponse](httpClient, baseURL+WeightServiceGetLatestProcedure, opts...),
		getHistory: connect.NewClient[GetWeightHistoryRequest, GetWeightHistoryResponse](httpClient, baseURL+WeightServiceGetHistoryProcedure, opts...),
	}
}

func (c *WeightServiceClient) AddWeight(ctx context.Context, req *connect.Request[AddWeightRequest]) (*connect.Response[AddWeightResponse], error) {
	return c.addWeight.CallUnary(ctx, req)
}

func (c *WeightServiceClient) GetLatest(ctx context.Context, req *connect.Request[GetLatestRequest]) (*connect.Response[GetLatestResponse], error) {
	return c.getLatest.CallUnary(ctx, req)
}

func (c *WeightServiceClient) GetHistory(ctx context.Context, req *connect.Request[GetWeightHistoryRequest]) (*connect.Response[GetWeightHistoryResponse], error) {
	return c.getHistory.CallUnary(ctx, req)
}
