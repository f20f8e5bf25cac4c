package deal

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gemdesk/gemdesk/internal/application/inventory"
	domainDeal "github.com/gemdesk/gemdesk/internal/domain/deal"
	"github.com/gemdesk/gemdesk/internal/domain/notification/mocks"
	"github.com/gemdesk/gemdesk/internal/domain/stone"
	"github.com/gemdesk/gemdesk/internal/store"
)

func testRow(stockID, price string) stone.Row {
	return stone.Row{
		stone.ColStockID:       stockID,
		stone.ColShape:         "ROUND",
		stone.ColWeight:        "1.50",
		stone.ColColor:         "D",
		stone.ColClarity:       "VS1",
		stone.ColPricePerCarat: price,
		stone.ColLab:           "GIA",
		stone.ColReportNumber:  "RPT-" + stockID,
		stone.ColDiamondType:   "NATURAL",
		stone.ColDescription:   "round brilliant",
		stone.ColCut:           "EX",
		stone.ColPolish:        "EX",
		stone.ColSymmetry:      "EX",
	}
}

func newTestEngine(t *testing.T) (*Service, *inventory.Service, *store.MemoryStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	mem := store.NewMemoryStore()
	inv := inventory.NewService(mem, zerolog.Nop())
	return NewService(mem, inv, sink, nil, zerolog.Nop()), inv, mem
}

func seedStone(t *testing.T, inv *inventory.Service, supplier string, ids ...string) {
	t.Helper()
	rows := make([]stone.Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, testRow(id, "10000"))
	}
	report, err := inv.ReplaceShard(context.Background(), supplier, rows)
	require.NoError(t, err)
	require.True(t, report.OK(), "seed upload rejected: %v", report.Errors)
}

func offer(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func TestCreateDealLocksStoneAndOpensDeal(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001")
	ctx := context.Background()

	d, err := svc.CreateDeal(ctx, "D001", "carol", offer("9500"))
	require.NoError(t, err)
	assert.Equal(t, domainDeal.StateOpen, d.State())
	assert.Equal(t, "alpha", d.Supplier)
	assert.True(t, d.ListPrice.Equal(offer("10000")))
	assert.True(t, d.OfferPrice.Equal(offer("9500")))
	assert.Regexp(t, `^DEAL-[0-9A-F]{10}$`, d.DealID)

	st, err := inv.GetStone(ctx, "D001")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, stone.Locked, st.Locked)

	second, err := svc.CreateDeal(ctx, "D001", "dave", offer("9000"))
	assert.ErrorIs(t, err, domainDeal.ErrStoneUnavailable)
	assert.Nil(t, second)
}

func TestCreateDealRequiresPositiveOffer(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001")

	_, err := svc.CreateDeal(context.Background(), "D001", "carol", offer("0"))
	require.Error(t, err)

	// A rejected offer must not consume the lock.
	st, err := inv.GetStone(context.Background(), "D001")
	require.NoError(t, err)
	assert.Equal(t, stone.Unlocked, st.Locked)
}

func TestCreateDealUnknownStone(t *testing.T) {
	svc, _, _ := newTestEngine(t)

	_, err := svc.CreateDeal(context.Background(), "NOPE", "carol", offer("100"))
	assert.ErrorIs(t, err, domainDeal.ErrStoneUnavailable)
}

func TestFullApprovalFlow(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001")
	ctx := context.Background()

	d, err := svc.CreateDeal(ctx, "D001", "carol", offer("9500"))
	require.NoError(t, err)

	d, err = svc.SupplierRespond(ctx, d.DealID, "alpha", domainDeal.DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, domainDeal.StateSupplierAccepted, d.State())

	d, err = svc.AdminRespond(ctx, d.DealID, domainDeal.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, domainDeal.StateCompleted, d.State())
	assert.True(t, d.IsTerminal())

	// The sold stone is gone from the view and the owning shard.
	st, err := inv.GetStone(ctx, "D001")
	require.NoError(t, err)
	assert.Nil(t, st)
	shard, err := inv.Shard(ctx, "alpha")
	require.NoError(t, err)
	assert.Nil(t, shard.Find("D001"))

	entries, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domainDeal.StatusOpen, entries[0].FinalStatus)
	assert.Equal(t, domainDeal.ActionAccepted, entries[1].SupplierAction)
	assert.Equal(t, domainDeal.StatusCompleted, entries[2].FinalStatus)
}

func TestSupplierRejectReleasesLock(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001")
	ctx := context.Background()

	d, err := svc.CreateDeal(ctx, "D001", "carol", offer("9500"))
	require.NoError(t, err)

	d, err = svc.SupplierRespond(ctx, d.DealID, "alpha", domainDeal.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, domainDeal.StateSupplierRejected, d.State())
	assert.True(t, d.IsTerminal())

	st, err := inv.GetStone(ctx, "D001")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, stone.Unlocked, st.Locked)

	// The stone is biddable again.
	_, err = svc.CreateDeal(ctx, "D001", "dave", offer("9200"))
	require.NoError(t, err)
}

func TestAdminRejectReleasesLock(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001")
	ctx := context.Background()

	d, err := svc.CreateDeal(ctx, "D001", "carol", offer("9500"))
	require.NoError(t, err)
	_, err = svc.SupplierRespond(ctx, d.DealID, "alpha", domainDeal.DecisionAccept)
	require.NoError(t, err)

	d, err = svc.AdminRespond(ctx, d.DealID, domainDeal.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, domainDeal.StateAdminRejected, d.State())

	st, err := inv.GetStone(ctx, "D001")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, stone.Unlocked, st.Locked)
}

func TestSupplierRespondGuards(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001")
	ctx := context.Background()

	d, err := svc.CreateDeal(ctx, "D001", "carol", offer("9500"))
	require.NoError(t, err)

	_, err = svc.SupplierRespond(ctx, d.DealID, "beta", domainDeal.DecisionAccept)
	assert.ErrorIs(t, err, domainDeal.ErrNotOwner)

	// Admin may not move before the supplier accepts.
	_, err = svc.AdminRespond(ctx, d.DealID, domainDeal.DecisionApprove)
	assert.ErrorIs(t, err, domainDeal.ErrInvalidPrecondition)

	_, err = svc.SupplierRespond(ctx, d.DealID, "alpha", domainDeal.DecisionReject)
	require.NoError(t, err)

	// Terminal deals refuse any further decision.
	_, err = svc.SupplierRespond(ctx, d.DealID, "alpha", domainDeal.DecisionAccept)
	assert.ErrorIs(t, err, domainDeal.ErrAlreadyFinal)
	_, err = svc.AdminRespond(ctx, d.DealID, domainDeal.DecisionReject)
	assert.ErrorIs(t, err, domainDeal.ErrAlreadyFinal)
}

func TestRespondUnknownDeal(t *testing.T) {
	svc, _, _ := newTestEngine(t)

	_, err := svc.SupplierRespond(context.Background(), "DEAL-0000000000", "alpha", domainDeal.DecisionAccept)
	assert.ErrorIs(t, err, domainDeal.ErrNotFound)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D002")
	ctx := context.Background()

	const clients = 16
	var wg sync.WaitGroup
	wins := make(chan string, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d, err := svc.CreateDeal(ctx, "D002", "client", offer("9000"))
			if err == nil {
				wins <- d.DealID
			} else {
				assert.ErrorIs(t, err, domainDeal.ErrStoneUnavailable)
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var winners []string
	for id := range wins {
		winners = append(winners, id)
	}
	require.Len(t, winners, 1, "exactly one client may win the stone")

	// Only the winner's deal exists.
	deals, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, winners[0], deals[0].DealID)
}

func TestListFiltersByParticipant(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001")
	seedStone(t, inv, "beta", "D002")
	ctx := context.Background()

	_, err := svc.CreateDeal(ctx, "D001", "carol", offer("9500"))
	require.NoError(t, err)
	_, err = svc.CreateDeal(ctx, "D002", "dave", offer("9300"))
	require.NoError(t, err)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.List(ctx, ListFilter{Supplier: "beta"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "D002", mine[0].StockID)

	carols, err := svc.List(ctx, ListFilter{Client: "carol"})
	require.NoError(t, err)
	require.Len(t, carols, 1)
	assert.Equal(t, "D001", carols[0].StockID)
}

func TestBatchPartialSuccess(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001", "D002")
	ctx := context.Background()

	d1, err := svc.CreateDeal(ctx, "D001", "carol", offer("9500"))
	require.NoError(t, err)
	d2, err := svc.CreateDeal(ctx, "D002", "dave", offer("9300"))
	require.NoError(t, err)

	results := svc.SupplierRespondBatch(ctx, "alpha", []BatchItem{
		{DealID: d1.DealID, Decision: domainDeal.DecisionAccept},
		{DealID: "DEAL-0000000000", Decision: domainDeal.DecisionAccept},
		{DealID: d2.DealID, Decision: domainDeal.DecisionReject},
	})
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].OK)

	admin := svc.AdminRespondBatch(ctx, []BatchItem{
		{DealID: d1.DealID, Decision: domainDeal.DecisionApprove},
		{DealID: d2.DealID, Decision: domainDeal.DecisionApprove}, // already closed
	})
	require.Len(t, admin, 2)
	assert.True(t, admin[0].OK)
	assert.Equal(t, domainDeal.StateCompleted, admin[0].Deal.State())
	assert.False(t, admin[1].OK)
}

func TestSupplierLeaderboard(t *testing.T) {
	svc, inv, _ := newTestEngine(t)
	seedStone(t, inv, "alpha", "D001", "D002")
	seedStone(t, inv, "beta", "D003")
	ctx := context.Background()

	complete := func(stockID, client string) {
		d, err := svc.CreateDeal(ctx, stockID, client, offer("9000"))
		require.NoError(t, err)
		_, err = svc.SupplierRespond(ctx, d.DealID, d.Supplier, domainDeal.DecisionAccept)
		require.NoError(t, err)
		_, err = svc.AdminRespond(ctx, d.DealID, domainDeal.DecisionApprove)
		require.NoError(t, err)
	}
	complete("D001", "carol")
	complete("D002", "dave")
	complete("D003", "carol")

	rows, err := svc.SupplierLeaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, LeaderboardRow{Supplier: "alpha", Completed: 2}, rows[0])
	assert.Equal(t, LeaderboardRow{Supplier: "beta", Completed: 1}, rows[1])
}
