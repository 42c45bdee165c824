package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/catalog"
	"github.com/mmynk/caltrack/internal/ledger"
	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/rpc"
	"github.com/mmynk/caltrack/internal/session"
)

// DiaryService implements the DiaryService RPC interface over the calling
// session's ledger.
type DiaryService struct {
	logger *slog.Logger
}

// NewDiaryService creates a new diary service.
func NewDiaryService(logger *slog.Logger) *DiaryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiaryService{logger: logger}
}

// dayView reads day's log and its progress in one go.
func dayView(g *session.Gateway, day calendar.Day) (models.DailyLog, ledger.Progress, error) {
	log, err := g.Log(day)
	if err != nil {
		return models.DailyLog{}, ledger.Progress{}, err
	}
	progress, err := g.Progress(day)
	if err != nil {
		return models.DailyLog{}, ledger.Progress{}, err
	}
	return log, progress, nil
}

// GetLog returns one day's log with progress against the target.
func (s *DiaryService) GetLog(ctx context.Context, req *connect.Request[rpc.GetLogRequest]) (*connect.Response[rpc.LogResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	day, err := parseDay(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}
	log, progress, err := dayView(g, day)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.LogResponse{Log: log, Progress: progress}), nil
}

// newEntry resolves a request into a ledger entry. Catalog foods get their
// name and calories from the catalog unless the request overrides them.
func newEntry(msg *rpc.AddFoodRequest) (models.NewFoodEntry, error) {
	in := models.NewFoodEntry{
		FoodID:   msg.FoodID,
		FoodName: msg.FoodName,
		Grams:    msg.Grams,
		Meal:     msg.Meal,
		Quantity: msg.Quantity,
		Unit:     msg.Unit,
	}

	if msg.FoodID != "" {
		food, err := catalog.Get(msg.FoodID)
		if err != nil {
			return models.NewFoodEntry{}, err
		}
		if in.FoodName == "" {
			in.FoodName = food.Name
		}
		if msg.Calories == nil {
			kcal, err := food.Calories(msg.Grams)
			if err != nil {
				return models.NewFoodEntry{}, err
			}
			in.Calories = kcal
			return in, nil
		}
	}

	if in.FoodName == "" {
		return models.NewFoodEntry{}, apperr.Invalid("foodName is required without a catalog foodId")
	}
	if msg.Calories == nil {
		return models.NewFoodEntry{}, apperr.Invalid("calories is required without a catalog foodId")
	}
	in.Calories = *msg.Calories
	return in, nil
}

// AddFood logs an entry and returns the updated day.
func (s *DiaryService) AddFood(ctx context.Context, req *connect.Request[rpc.AddFoodRequest]) (*connect.Response[rpc.AddFoodResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	day, err := parseDay(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}
	in, err := newEntry(req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}

	entry, err := g.AddFood(day, in)
	if err != nil {
		return nil, toConnectError(err)
	}
	log, progress, err := dayView(g, day)
	if err != nil {
		return nil, toConnectError(err)
	}

	s.logger.Debug("Food logged", "entry_id", entry.ID, "calories", entry.Calories, "meal", entry.Meal)
	return connect.NewResponse(&rpc.AddFoodResponse{Entry: entry, Log: log, Progress: progress}), nil
}

// RemoveFood deletes an entry. An unknown entry is reported through Removed.
func (s *DiaryService) RemoveFood(ctx context.Context, req *connect.Request[rpc.RemoveFoodRequest]) (*connect.Response[rpc.RemoveFoodResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.EntryID == "" {
		return nil, toConnectError(apperr.Invalid("entryId is required"))
	}
	day, err := parseDay(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}

	removed, err := g.RemoveFood(req.Msg.EntryID, day)
	if err != nil {
		return nil, toConnectError(err)
	}
	log, progress, err := dayView(g, day)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.RemoveFoodResponse{Removed: removed, Log: log, Progress: progress}), nil
}

// ClearLog deletes a day's log.
func (s *DiaryService) ClearLog(ctx context.Context, req *connect.Request[rpc.ClearLogRequest]) (*connect.Response[rpc.ClearLogResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	day, err := parseDay(req.Msg.Date)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := g.ClearLog(day); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.ClearLogResponse{}), nil
}

// GetHistory returns the last Days days (7 when unset), oldest first.
func (s *DiaryService) GetHistory(ctx context.Context, req *connect.Request[rpc.GetHistoryRequest]) (*connect.Response[rpc.GetHistoryResponse], error) {
	g, err := gatewayFrom(ctx)
	if err != nil {
		return nil, err
	}
	days := req.Msg.Days
	if days == 0 {
		days = 7
	}
	if days < 0 || days > ledger.MaxHistoryDays {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			apperr.Invalid("days must be between 1 and %d", ledger.MaxHistoryDays))
	}

	logs, err := g.History(days)
	if err != nil {
		return nil, toConnectError(err)
	}
	p, err := g.Profile()
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.GetHistoryResponse{Logs: logs, Target: p.DailyEnergyTarget}), nil
}

// SearchFoods queries the built-in catalog. It needs no session.
func (s *DiaryService) SearchFoods(ctx context.Context, req *connect.Request[rpc.SearchFoodsRequest]) (*connect.Response[rpc.SearchFoodsResponse], error) {
	foods := catalog.Search(req.Msg.Query, req.Msg.Category)
	if foods == nil {
		foods = []catalog.Food{}
	}
	return connect.NewResponse(&rpc.SearchFoodsResponse{Foods: foods}), nil
}
