package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// LedgerTx is the transactional surface the ledger needs. Repositories of documents that
// post movements (GRR, MIR) implement it on the same database transaction as their own
// writes, so a status change and its movements commit or roll back together.
type LedgerTx interface {
	// LockParts locks the rows of ids (in the given order) and returns their stock state.
	LockParts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PartStock, error)
	InsertMovement(ctx context.Context, m Movement) error
	MovementTotals(ctx context.Context, partID uuid.UUID) (Totals, error)
	SetCurrentStock(ctx context.Context, partID uuid.UUID, qty int) error
}

// PartLedger pairs a part's stored stock with its ledger totals.
type PartLedger struct {
	Stock  PartStock
	Totals Totals
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, LedgerTx) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	PartStock(ctx context.Context, partID uuid.UUID) (PartStock, error)
	LedgerSummary(ctx context.Context) ([]PartLedger, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort claims client supplied keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Invalidator drops cached collections after a commit.
type Invalidator interface {
	Invalidate(ctx context.Context, collections ...string) error
}

// MetricsPort records posted movements.
type MetricsPort interface {
	ObserveMovement(movementType, referenceType string, qty int)
	ObserveDrift(count int)
}

// Service is the single authority over Part.current_stock.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	cache       Invalidator
	metrics     MetricsPort
	allowNeg    bool
	now         func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
	Metrics            MetricsPort
	Clock              func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, cache Invalidator, cfg ServiceConfig) *Service {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		cache:       cache,
		metrics:     cfg.Metrics,
		allowNeg:    cfg.AllowNegativeStock,
		now:         now,
	}
}

// PostWithin appends movements and recomputes the stock of every touched part, all on tx.
// The caller owns the transaction and invalidates caches after it commits.
func (s *Service) PostWithin(ctx context.Context, tx LedgerTx, inputs []MovementInput) ([]Movement, error) {
	if tx == nil {
		return nil, errNoLedger
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	for i, in := range inputs {
		if err := in.validate(); err != nil {
			return nil, fmt.Errorf("movement %d: %w", i+1, err)
		}
	}

	ids := distinctParts(inputs)
	stocks, err := tx.LockParts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := stocks[id]; !ok {
			return nil, fmt.Errorf("%w %s", ErrPartNotFound, id)
		}
	}

	now := s.now().UTC()
	movements := make([]Movement, 0, len(inputs))
	for _, in := range inputs {
		stock := stocks[in.PartID]
		m := Movement{
			ID:            uuid.New(),
			PartID:        in.PartID,
			PartNo:        stock.PartNo,
			Type:          in.Type,
			Quantity:      in.Quantity,
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
			MovementDate:  in.MovementDate,
			UnitRate:      in.UnitRate,
			Remarks:       in.Remarks,
			CreatedBy:     in.CreatedBy,
			CreatedAt:     now,
		}
		if m.MovementDate.IsZero() {
			m.MovementDate = truncateDay(now)
		}
		if m.UnitRate.IsZero() {
			m.UnitRate = stock.UnitRate
		}
		if err := tx.InsertMovement(ctx, m); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	for _, id := range ids {
		stock := stocks[id]
		totals, err := tx.MovementTotals(ctx, id)
		if err != nil {
			return nil, err
		}
		expected := totals.Expected(stock.OpeningStock)
		if expected < 0 && !s.allowNeg {
			return nil, fmt.Errorf("%w: part %s would reach %d", ErrNegativeStock, stock.PartNo, expected)
		}
		if err := tx.SetCurrentStock(ctx, id, expected); err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		for _, m := range movements {
			s.metrics.ObserveMovement(string(m.Type), string(m.ReferenceType), m.Quantity)
		}
	}
	return movements, nil
}

// PostAdjustment posts a manual ADJUSTMENT movement in its own transaction.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (Movement, error) {
	movementInput := MovementInput{
		PartID:        input.PartID,
		Type:          input.Type,
		Quantity:      input.Quantity,
		ReferenceType: ReferenceAdjustment,
		MovementDate:  input.MovementDate,
		UnitRate:      input.UnitRate,
		Remarks:       input.Remarks,
		CreatedBy:     input.CreatedBy,
	}
	if err := movementInput.validate(); err != nil {
		return Movement{}, err
	}

	key := ""
	if input.IdempotencyKey != "" && s.idempotency != nil {
		key = "ADJ:" + input.IdempotencyKey
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory.adjustment"); err != nil {
			return Movement{}, err
		}
	}

	var posted []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		var err error
		posted, err = s.PostWithin(ctx, tx, []MovementInput{movementInput})
		return err
	})
	if err != nil {
		if key != "" {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Movement{}, err
	}
	movement := posted[0]
	s.recordAudit(ctx, "STOCK_ADJUST", movement.ID, input.CreatedBy, map[string]any{
		"part_id":  movement.PartID.String(),
		"type":     string(movement.Type),
		"quantity": movement.Quantity,
	})
	s.invalidate(ctx, listcache.Parts, listcache.StockMovements)
	return movement, nil
}

// ListMovements lists ledger entries, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: movement_type must be IN or OUT", shared.ErrValidation)
	}
	if filter.ReferenceType != "" && !filter.ReferenceType.Valid() {
		return nil, fmt.Errorf("%w: unknown reference_type", shared.ErrValidation)
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 500
	}
	return s.repo.ListMovements(ctx, filter)
}

// StockCard returns a part's movements in date order with running balances.
func (s *Service) StockCard(ctx context.Context, partID uuid.UUID) (StockCard, error) {
	stock, err := s.repo.PartStock(ctx, partID)
	if err != nil {
		return StockCard{}, err
	}
	movements, err := s.repo.ListMovements(ctx, MovementFilter{PartID: &partID})
	if err != nil {
		return StockCard{}, err
	}
	sort.SliceStable(movements, func(i, j int) bool {
		if !movements[i].MovementDate.Equal(movements[j].MovementDate) {
			return movements[i].MovementDate.Before(movements[j].MovementDate)
		}
		return movements[i].CreatedAt.Before(movements[j].CreatedAt)
	})
	card := StockCard{
		PartID:       stock.PartID,
		PartNo:       stock.PartNo,
		OpeningStock: stock.OpeningStock,
		CurrentStock: stock.CurrentStock,
		Entries:      make([]StockCardEntry, 0, len(movements)),
	}
	balance := stock.OpeningStock
	for _, m := range movements {
		balance += m.Signed()
		entry := StockCardEntry{
			MovementID:    m.ID,
			MovementDate:  m.MovementDate,
			ReferenceType: m.ReferenceType,
			ReferenceID:   m.ReferenceID,
			Balance:       balance,
			Remarks:       m.Remarks,
		}
		if m.Type == MovementIn {
			entry.QtyIn = m.Quantity
		} else {
			entry.QtyOut = m.Quantity
		}
		card.Entries = append(card.Entries, entry)
	}
	return card, nil
}

// Reconcile compares every part's stored stock with its ledger. With fix set, drifting
// parts are rewritten from the ledger under lock.
func (s *Service) Reconcile(ctx context.Context, fix bool) (ReconcileReport, error) {
	summary, err := s.repo.LedgerSummary(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{Checked: len(summary), Drifts: []Drift{}, RanAt: s.now().UTC()}
	for _, row := range summary {
		expected := row.Totals.Expected(row.Stock.OpeningStock)
		if expected == row.Stock.CurrentStock {
			continue
		}
		drift := Drift{PartID: row.Stock.PartID, PartNo: row.Stock.PartNo, Stored: row.Stock.CurrentStock, Expected: expected}
		if fix {
			fixed, err := s.repair(ctx, row.Stock.PartID)
			if err != nil {
				return report, err
			}
			drift.Fixed = fixed
		}
		report.Drifts = append(report.Drifts, drift)
	}
	if s.metrics != nil {
		s.metrics.ObserveDrift(len(report.Drifts))
	}
	if fix && len(report.Drifts) > 0 {
		s.invalidate(ctx, listcache.Parts)
	}
	return report, nil
}

func (s *Service) repair(ctx context.Context, partID uuid.UUID) (bool, error) {
	fixed := false
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		stocks, err := tx.LockParts(ctx, []uuid.UUID{partID})
		if err != nil {
			return err
		}
		stock, ok := stocks[partID]
		if !ok {
			return nil
		}
		totals, err := tx.MovementTotals(ctx, partID)
		if err != nil {
			return err
		}
		expected := totals.Expected(stock.OpeningStock)
		if expected == stock.CurrentStock {
			return nil
		}
		fixed = true
		return tx.SetCurrentStock(ctx, partID, expected)
	})
	if err != nil {
		return false, err
	}
	if fixed {
		s.recordAudit(ctx, "STOCK_RECONCILE", partID, "system", nil)
	}
	return fixed, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id uuid.UUID, actor string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "inventory", EntityID: id.String(), Meta: meta})
}

func (s *Service) invalidate(ctx context.Context, collections ...string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, collections...)
}

// distinctParts returns the part ids of inputs in ascending byte order so concurrent
// postings lock rows in the same sequence.
func distinctParts(inputs []MovementInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		if _, ok := seen[in.PartID]; ok {
			continue
		}
		seen[in.PartID] = struct{}{}
		ids = append(ids, in.PartID)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsNegativeStock reports whether err came from the negative stock guard.
func IsNegativeStock(err error) bool {
	return errors.Is(err, ErrNegativeStock)
}
