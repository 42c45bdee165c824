package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/energy"
	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/rpc"
	"github.com/mmynk/caltrack/internal/session"
)

// ProfileService implements the ProfileService RPC interface.
type ProfileService struct {
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{logger: logger}
}

func profileResponse(p models.Profile, state session.State) *rpc.ProfileResponse {
	return &rpc.ProfileResponse{
		Profile:       p,
		ActivityLabel: energy.Label(p.ActivityLevel),
		State:         state.String(),
	}
}

// GetProfile returns the signed-in user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, req *connect.Request[rpc.GetProfileRequest]) (*connect.Response[rpc.ProfileResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	p, err := g.Profile()
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(profileResponse(p, g.State())), nil
}

// CreateProfile completes registration for an account without a profile.
func (s *ProfileService) CreateProfile(ctx context.Context, req *connect.Request[rpc.CreateProfileRequest]) (*connect.Response[rpc.ProfileResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}

	sex, err := energy.ParseSex(req.Msg.Sex)
	if err != nil {
		return nil, toConnectError(err)
	}
	level, err := energy.ParseActivityLevel(req.Msg.ActivityLevel)
	if err != nil {
		return nil, toConnectError(err)
	}

	p, err := g.CreateProfile(ctx, session.NewProfile{
		Name:          req.Msg.Name,
		Age:           req.Msg.Age,
		Sex:           sex,
		Weight:        req.Msg.Weight,
		Height:        req.Msg.Height,
		ActivityLevel: level,
	})
	if err != nil {
		s.logger.Warn("Create profile failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(profileResponse(p, g.State())), nil
}

// UpdateProfile applies a partial edit and returns the new profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, req *connect.Request[rpc.UpdateProfileRequest]) (*connect.Response[rpc.ProfileResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}

	upd := models.ProfileUpdate{
		Name:   req.Msg.Name,
		Email:  req.Msg.Email,
		Age:    req.Msg.Age,
		Weight: req.Msg.Weight,
		Height: req.Msg.Height,
	}
	if req.Msg.Sex != nil {
		sex, err := energy.ParseSex(*req.Msg.Sex)
		if err != nil {
			return nil, toConnectError(err)
		}
		upd.Sex = &sex
	}
	if req.Msg.ActivityLevel != nil {
		level, err := energy.ParseActivityLevel(*req.Msg.ActivityLevel)
		if err != nil {
			return nil, toConnectError(err)
		}
		upd.ActivityLevel = &level
	}

	p, err := g.UpdateProfile(ctx, upd)
	if err != nil {
		s.logger.Warn("Update profile failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(profileResponse(p, g.State())), nil
}
