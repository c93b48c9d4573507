package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/httpx/reply"
	"goods_market/pkg/httpx/req"
	"goods_market/pkg/rest"
)

type gachaService interface {
	RollOnce(ctx context.Context, actor entity.Actor, machineID string) (entity.DrawResult, error)
	RollTen(ctx context.Context, actor entity.Actor, machineID string) (entity.DrawResult, error)
	Complete(ctx context.Context, actorID, drawID string) (entity.DrawResult, error)
	Cancel(ctx context.Context, actorID, drawID string) error
	History(ctx context.Context, actorID string, limit int) ([]entity.DrawRecord, error)
}

type machineView interface {
	List() []*entity.GachaMachine
}

type GachaServer struct {
	gachaService gachaService
	machines     machineView
}

func NewGachaServer(gachaService gachaService, machines machineView) GachaServer {
	return GachaServer{
		gachaService: gachaService,
		machines:     machines,
	}
}

func (s GachaServer) getV1Machines(w http.ResponseWriter, r *http.Request) error {
	reply.JSON(r.Context(), w, http.StatusOK, lo.Map(s.machines.List(), func(m *entity.GachaMachine, _ int) rest.Machine {
		return newRESTMachine(m)
	}))

	return nil
}

func (s GachaServer) postV1Roll(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	var request rest.RollRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	roll := s.gachaService.RollOnce
	if request.Count == 10 { //nolint:mnd
		roll = s.gachaService.RollTen
	}

	result, err := roll(ctx, actor, chi.URLParam(r, "machine"))
	if err != nil {
		return fmt.Errorf("gachaService.Roll: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDrawResult(result))

	return nil
}

func (s GachaServer) postV1DrawComplete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	result, err := s.gachaService.Complete(ctx, actor.ID, chi.URLParam(r, "draw"))
	if err != nil {
		return fmt.Errorf("gachaService.Complete: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDrawResult(result))

	return nil
}

func (s GachaServer) postV1DrawCancel(w http.ResponseWriter, r *http.Request) error {
	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	if err := s.gachaService.Cancel(r.Context(), actor.ID, chi.URLParam(r, "draw")); err != nil {
		return fmt.Errorf("gachaService.Cancel: %w", err)
	}

	reply.OK(w)

	return nil
}

func (s GachaServer) getV1Draws(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	limit, err := historyLimit(r)
	if err != nil {
		return err
	}

	records, err := s.gachaService.History(ctx, chi.URLParam(r, "actor"), limit)
	if err != nil {
		return fmt.Errorf("gachaService.History: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lo.Map(records, func(d entity.DrawRecord, _ int) rest.Draw {
		return newRESTDraw(d)
	}))

	return nil
}
