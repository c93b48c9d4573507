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

type purchaseService interface {
	Buy(ctx context.Context, actor entity.Actor, entryID string, amount int) (entity.PurchaseResult, error)
	Sell(ctx context.Context, actor entity.Actor, items []entity.SellItem) (entity.SellResult, error)
	History(ctx context.Context, actorID string, limit int) ([]entity.TransactionRecord, error)
}

type catalogView interface {
	List() []entity.CatalogEntry
}

type ShopServer struct {
	purchaseService purchaseService
	catalog         catalogView
}

func NewShopServer(purchaseService purchaseService, catalog catalogView) ShopServer {
	return ShopServer{
		purchaseService: purchaseService,
		catalog:         catalog,
	}
}

func (s ShopServer) getV1Catalog(w http.ResponseWriter, r *http.Request) error {
	entries := lo.Filter(s.catalog.List(), func(e entity.CatalogEntry, _ int) bool { return e.Enabled })

	reply.JSON(r.Context(), w, http.StatusOK, lo.Map(entries, func(e entity.CatalogEntry, _ int) rest.CatalogEntry {
		return newRESTCatalogEntry(e)
	}))

	return nil
}

func (s ShopServer) postV1Buy(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	var request rest.BuyRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.purchaseService.Buy(ctx, actor, request.EntryID, request.Amount)
	if result.State == entity.PurchasePending {
		reply.JSON(ctx, w, http.StatusAccepted, newRESTPurchaseResult(result))

		return nil
	}

	if err != nil {
		return fmt.Errorf("purchaseService.Buy: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTPurchaseResult(result))

	return nil
}

func (s ShopServer) postV1Sell(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	actor, err := actorFromRequest(r)
	if err != nil {
		return err
	}

	var request rest.SellRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	result, err := s.purchaseService.Sell(ctx, actor, newDomainSellItems(request.Items))
	if result.Pending {
		reply.JSON(ctx, w, http.StatusAccepted, newRESTSellResult(result))

		return nil
	}

	if err != nil {
		return fmt.Errorf("purchaseService.Sell: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSellResult(result))

	return nil
}

func (s ShopServer) getV1Transactions(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	limit, err := historyLimit(r)
	if err != nil {
		return err
	}

	records, err := s.purchaseService.History(ctx, chi.URLParam(r, "actor"), limit)
	if err != nil {
		return fmt.Errorf("purchaseService.History: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lo.Map(records, func(t entity.TransactionRecord, _ int) rest.Transaction {
		return newRESTTransaction(t)
	}))

	return nil
}
