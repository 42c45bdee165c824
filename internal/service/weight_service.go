package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/rpc"
	"github.com/mmynk/caltrack/internal/weight"
)

// WeightService implements the WeightService RPC interface.
type WeightService struct {
	logger *slog.Logger
}

// NewWeightService creates a new weight service.
func NewWeightService(logger *slog.Logger) *WeightService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeightService{logger: logger}
}

// AddWeight records a measurement and returns the recomputed target.
func (s *WeightService) AddWeight(ctx context.Context, req *connect.Request[rpc.AddWeightRequest]) (*connect.Response[rpc.AddWeightResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := g.AddWeight(req.Msg.Weight)
	if err != nil {
		return nil, toConnectError(err)
	}
	p, err := g.Profile()
	if err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Debug("Weight recorded", "weight", entry.Weight, "target", p.DailyEnergyTarget)
	return connect.NewResponse(&rpc.AddWeightResponse{Entry: entry, DailyEnergyTarget: p.DailyEnergyTarget}), nil
}

// GetLatest returns the newest measurement, or no entry when there is none.
func (s *WeightService) GetLatest(ctx context.Context, req *connect.Request[rpc.GetLatestRequest]) (*connect.Response[rpc.GetLatestResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok, err := g.LatestWeight()
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &rpc.GetLatestResponse{}
	if ok {
		resp.Entry = &entry
	}
	return connect.NewResponse(resp), nil
}

// GetHistory returns measurements from the last Days days (30 when unset).
func (s *WeightService) GetHistory(ctx context.Context, req *connect.Request[rpc.GetWeightHistoryRequest]) (*connect.Response[rpc.GetWeightHistoryResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	days := req.Msg.Days
	if days == 0 {
		days = 30
	}
	if days < 0 || days > weight.MaxWindowDays {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			apperr.Invalid("days must be between 0 and %d", weight.MaxWindowDays))
	}
	entries, err := g.WeightWindow(days)
	if err != nil {
		return nil, toConnectError(err)
	}
	if entries == nil {
		entries = []models.WeightEntry{}
	}
	return connect.NewResponse(&rpc.GetWeightHistoryResponse{Entries: entries}), nil
}
