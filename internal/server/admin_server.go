package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/httpx/reply"
	"goods_market/pkg/httpx/req"
	"goods_market/pkg/rest"
)

type adminService interface {
	ResetStock(ctx context.Context, entryID string) (int, error)
	SetStock(ctx context.Context, entryID string, stock int) error
	DeleteEntry(ctx context.Context, entryID string) error
	CleanupOlderThan(ctx context.Context, days int) (entity.CleanupResult, error)
	ResetPlayerLimit(ctx context.Context, actorID, entryID string) (int64, error)
}

// configReloader перечитывает каталог и автоматы из файла конфигурации.
type configReloader interface {
	Reload(ctx context.Context) error
}

type AdminServer struct {
	adminService adminService
	reloader     configReloader
}

func NewAdminServer(adminService adminService, reloader configReloader) AdminServer {
	return AdminServer{
		adminService: adminService,
		reloader:     reloader,
	}
}

func (s AdminServer) putV1AdminStock(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	entryID := chi.URLParam(r, "entry")

	var request rest.SetStockRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	if err := s.adminService.SetStock(ctx, entryID, request.Stock); err != nil {
		return fmt.Errorf("adminService.SetStock: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.Stock{EntryID: entryID, Stock: request.Stock})

	return nil
}

func (s AdminServer) postV1AdminResetStock(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	entryID := chi.URLParam(r, "entry")

	stock, err := s.adminService.ResetStock(ctx, entryID)
	if err != nil {
		return fmt.Errorf("adminService.ResetStock: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.Stock{EntryID: entryID, Stock: stock})

	return nil
}

func (s AdminServer) deleteV1AdminEntry(w http.ResponseWriter, r *http.Request) error {
	if err := s.adminService.DeleteEntry(r.Context(), chi.URLParam(r, "entry")); err != nil {
		return fmt.Errorf("adminService.DeleteEntry: %w", err)
	}

	reply.OK(w)

	return nil
}

func (s AdminServer) postV1AdminCleanup(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.CleanupRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.adminService.CleanupOlderThan(ctx, request.Days)
	if err != nil {
		return fmt.Errorf("adminService.CleanupOlderThan: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.CleanupResult{
		Transactions: result.Transactions,
		DailyLimits:  result.DailyLimits,
		Draws:        result.Draws,
	})

	return nil
}

func (s AdminServer) postV1AdminResetLimit(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.ResetLimitRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	removed, err := s.adminService.ResetPlayerLimit(ctx, request.ActorID, request.EntryID)
	if err != nil {
		return fmt.Errorf("adminService.ResetPlayerLimit: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.ResetLimitResult{Removed: removed})

	return nil
}

func (s AdminServer) postV1AdminReload(w http.ResponseWriter, r *http.Request) error {
	if err := s.reloader.Reload(r.Context()); err != nil {
		return fmt.Errorf("reloader.Reload: %w", err)
	}

	reply.OK(w)

	return nil
}
