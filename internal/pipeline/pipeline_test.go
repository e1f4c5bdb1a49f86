package pipeline_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"tradedesk/internal/models"
	"tradedesk/internal/pipeline"
	"tradedesk/internal/store"
	"tradedesk/internal/testutil"
	"tradedesk/internal/websocket"
)

type recorder struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (r *recorder) Broadcast(e websocket.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) has(module, action string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Module == module && e.Action == action {
			return true
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func setup(t *testing.T, opts ...store.Option) (*store.Store, *pipeline.Pipeline) {
	t.Helper()
	s := testutil.SetupStore(t, opts...)
	return s, pipeline.New(s, nil)
}

func mustConvert(t *testing.T, res pipeline.Result) pipeline.Result {
	t.Helper()
	if !res.OK {
		t.Fatalf("conversion failed: %s %v", res.Message, res.Errors)
	}
	return res
}

func TestConvertQuoteAppliesClientMargin(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 15)
	q := testutil.CreateTestQuote(t, s, c.ID, "LM358", 50, 100)

	res := mustConvert(t, p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q.ID}))
	if res.Converted != 1 || len(res.Created) != 1 {
		t.Fatalf("expected one offer, got %+v", res)
	}
	if res.Message != "converted 1 records" {
		t.Errorf("message = %q", res.Message)
	}

	o, err := s.GetOffer(ctx, res.Created[0])
	if err != nil {
		t.Fatal(err)
	}
	if o.OfferPriceRMB != 115 {
		t.Errorf("offer price = %v, want 115", o.OfferPriceRMB)
	}
	if o.PriceKRW != 20700 {
		t.Errorf("KRW = %v, want 20700", o.PriceKRW)
	}
	if o.PriceUSD != 16.43 {
		t.Errorf("USD = %v, want 16.43", o.PriceUSD)
	}
	if o.Profit != 15 || o.TotalProfit != 750 {
		t.Errorf("profit = %v/%v, want 15/750", o.Profit, o.TotalProfit)
	}
	if o.EmpID != testutil.AdminID {
		t.Errorf("offer owner = %q", o.EmpID)
	}
	if o.QuotedMPN != "LM358" || o.QuotedQty != 50 {
		t.Errorf("offer fields not copied: %+v", o)
	}

	got, err := s.GetQuote(ctx, q.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsTransferred || got.Status != models.QuoteOffered {
		t.Errorf("quote not marked: transferred=%v status=%s", got.IsTransferred, got.Status)
	}
}

func TestConvertUsesLatestRecordedRate(t *testing.T) {
	s, p := setup(t)
	c := testutil.CreateTestClient(t, s, "Acme", 15)
	q := testutil.CreateTestQuote(t, s, c.ID, "LM358", 50, 100)
	testutil.CreateTestRate(t, s, "", "KRW", 200)

	res := mustConvert(t, p.ConvertQuotesToOffers(context.Background(), testutil.AdminID, []string{q.ID}))
	o, err := s.GetOffer(context.Background(), res.Created[0])
	if err != nil {
		t.Fatal(err)
	}
	if o.PriceKRW != 23000 {
		t.Errorf("KRW = %v, want 23000", o.PriceKRW)
	}
}

func TestConvertSameQuoteTwice(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	q := testutil.CreateTestQuote(t, s, c.ID, "NE555", 10, 1)

	mustConvert(t, p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q.ID}))
	res := p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q.ID})
	if res.OK {
		t.Fatalf("second conversion succeeded: %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != q.ID+": already transferred" {
		t.Errorf("errors = %v", res.Errors)
	}
	if n := testutil.CountRows(t, s.DB(), "offers", "quote_id = ?", q.ID); n != 1 {
		t.Errorf("offers for quote = %d, want 1", n)
	}
	got, _ := s.GetQuote(ctx, q.ID)
	if !got.IsTransferred {
		t.Error("quote lost its transferred flag")
	}
}

func TestBatchSkipsAlreadyConvertedItem(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	q1 := testutil.CreateTestQuote(t, s, c.ID, "PART-1", 1, 1)
	q2 := testutil.CreateTestQuote(t, s, c.ID, "PART-2", 1, 1)
	q3 := testutil.CreateTestQuote(t, s, c.ID, "PART-3", 1, 1)
	mustConvert(t, p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q2.ID}))

	res := p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q1.ID, q2.ID, q3.ID})
	if !res.OK || res.Converted != 2 {
		t.Fatalf("expected 2 converted, got %+v", res)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], q2.ID+":") {
		t.Errorf("errors = %v", res.Errors)
	}
	if res.Message != "converted 2 records (1 failed)" {
		t.Errorf("message = %q", res.Message)
	}
	for _, id := range []string{q1.ID, q2.ID, q3.ID} {
		if n := testutil.CountRows(t, s.DB(), "offers", "quote_id = ?", id); n != 1 {
			t.Errorf("offers for %s = %d, want 1", id, n)
		}
	}
}

func TestUnexpectedFaultRollsBackWholeBatch(t *testing.T) {
	rec := &recorder{}
	s, p := setup(t, store.WithNotifier(rec))
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)

	var ids []string
	for _, mpn := range []string{"PART-1", "PART-2", "BOOM", "PART-4", "PART-5"} {
		ids = append(ids, testutil.CreateTestQuote(t, s, c.ID, mpn, 1, 1).ID)
	}
	_, err := s.DB().Exec(`CREATE TRIGGER offers_fault BEFORE INSERT ON offers
		WHEN NEW.inquiry_mpn = 'BOOM' BEGIN SELECT RAISE(ABORT, 'injected fault'); END`)
	if err != nil {
		t.Fatal(err)
	}
	before := rec.count()

	res := p.ConvertQuotesToOffers(ctx, testutil.AdminID, ids)
	if res.OK || res.Converted != 0 || len(res.Created) != 0 {
		t.Fatalf("batch should have aborted: %+v", res)
	}
	if !strings.Contains(res.Message, "injected fault") {
		t.Errorf("message = %q", res.Message)
	}
	if n := testutil.CountRows(t, s.DB(), "offers", ""); n != 0 {
		t.Errorf("offers = %d, want 0", n)
	}
	if n := testutil.CountRows(t, s.DB(), "quotes", "is_transferred = 1"); n != 0 {
		t.Errorf("transferred quotes = %d, want 0", n)
	}
	if n := testutil.CountRows(t, s.DB(), "audit_log", "module = 'offers'"); n != 0 {
		t.Errorf("audit rows = %d, want 0", n)
	}
	if rec.count() != before {
		t.Errorf("events published for rolled back batch")
	}
}

func TestValidationFailureSkipsOnlyThatItem(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	q1 := testutil.CreateTestQuote(t, s, c.ID, "PART-1", 1, 1)
	q2 := testutil.CreateTestQuote(t, s, c.ID, "PART-2", 1, 1)
	// A check failure is a constraint violation, not a fault.
	_, err := s.DB().Exec(`CREATE TRIGGER offers_check BEFORE INSERT ON offers
		WHEN NEW.inquiry_mpn = 'PART-1' BEGIN SELECT RAISE(ABORT, 'CHECK constraint failed: part'); END`)
	if err != nil {
		t.Fatal(err)
	}

	res := p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q1.ID, q2.ID})
	if !res.OK || res.Converted != 1 || len(res.Errors) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	got, _ := s.GetQuote(ctx, q1.ID)
	if got.IsTransferred {
		t.Error("failed item left its quote transferred")
	}
}

func TestMissingSourceIDsAreListed(t *testing.T) {
	s, p := setup(t)
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	q := testutil.CreateTestQuote(t, s, c.ID, "PART-1", 1, 1)

	res := p.ConvertQuotesToOffers(context.Background(), testutil.AdminID, []string{"Q-missing", q.ID, " ", q.ID})
	if !res.OK || res.Converted != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Errors) != 0 {
		t.Errorf("missing id reported as error: %v", res.Errors)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "Q-missing" {
		t.Errorf("missing = %v", res.Missing)
	}
}

func TestNothingConvertedCommitsNothing(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()

	res := p.ConvertQuotesToOffers(ctx, testutil.AdminID, nil)
	if res.OK || res.Message != "no records selected" {
		t.Errorf("empty batch: %+v", res)
	}

	before := testutil.CountRows(t, s.DB(), "audit_log", "")
	res = p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{"Q-none"})
	if res.OK || res.Message != "converted 0 records" {
		t.Errorf("all-missing batch: %+v", res)
	}
	if n := testutil.CountRows(t, s.DB(), "audit_log", ""); n != before {
		t.Errorf("audit rows changed: %d -> %d", before, n)
	}
}

func TestConvertRequiresKnownEmployee(t *testing.T) {
	s, p := setup(t)
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	q := testutil.CreateTestQuote(t, s, c.ID, "PART-1", 1, 1)

	res := p.ConvertQuotesToOffers(context.Background(), "999", []string{q.ID})
	if res.OK || !strings.Contains(res.Message, "not found") {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestConvertOffersToOrdersResolvesClient(t *testing.T) {
	rec := &recorder{}
	s, p := setup(t, store.WithNotifier(rec))
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 15)
	q := testutil.CreateTestQuote(t, s, c.ID, "LM358", 50, 100)
	offers := mustConvert(t, p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q.ID}))

	res := mustConvert(t, p.ConvertOffersToOrders(ctx, testutil.AdminID, offers.Created, ""))
	so, err := s.GetOrder(ctx, res.Created[0])
	if err != nil {
		t.Fatal(err)
	}
	if so.CliID != c.ID {
		t.Errorf("client = %q, want %q", so.CliID, c.ID)
	}
	if so.Qty != 50 || so.PriceRMB != 115 || so.CostPriceRMB != 100 || so.PriceKRW != 20700 {
		t.Errorf("order fields: %+v", so)
	}
	if so.TotalProfit != 750 {
		t.Errorf("total profit = %d", so.TotalProfit)
	}
	if !strings.HasPrefix(so.OrderNo, "UNI-Acme-") {
		t.Errorf("order no = %q", so.OrderNo)
	}
	if so.ReturnStatus != models.ReturnNormal {
		t.Errorf("return status = %q", so.ReturnStatus)
	}
	o, _ := s.GetOffer(ctx, offers.Created[0])
	if !o.IsTransferred {
		t.Error("offer not marked transferred")
	}
	if !rec.has(store.Orders, "create") {
		t.Error("no order event published")
	}

	again := p.ConvertOffersToOrders(ctx, testutil.AdminID, offers.Created, "")
	if again.OK || len(again.Errors) != 1 || !strings.Contains(again.Errors[0], "already transferred") {
		t.Errorf("second conversion: %+v", again)
	}
}

func TestConvertOfferWithoutQuoteNeedsClient(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)

	add := p.AddOffer(ctx, testutil.AdminID, pipeline.NewOffer{InquiryMPN: "LM358", InquiryQty: 5, CostPriceRMB: 2})
	if !add.OK {
		t.Fatalf("add offer: %+v", add)
	}

	res := p.ConvertOffersToOrders(ctx, testutil.AdminID, add.Created, "")
	if res.OK || len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "cannot resolve client") {
		t.Fatalf("unresolved client: %+v", res)
	}

	res = mustConvert(t, p.ConvertOffersToOrders(ctx, testutil.AdminID, add.Created, c.ID))
	so, _ := s.GetOrder(ctx, res.Created[0])
	if so.CliID != c.ID || so.Qty != 5 {
		t.Errorf("order = %+v", so)
	}
}

func TestConvertOrdersToPurchasesUsesOfferVendor(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 15)
	v := testutil.CreateTestVendor(t, s, "Parts Ltd")
	q := testutil.CreateTestQuote(t, s, c.ID, "LM358", 50, 100)
	offers := mustConvert(t, p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q.ID}))
	if err := s.UpdatePartial(ctx, testutil.AdminID, store.Offers, offers.Created[0], map[string]interface{}{"vendor_id": v.ID}); err != nil {
		t.Fatal(err)
	}
	orders := mustConvert(t, p.ConvertOffersToOrders(ctx, testutil.AdminID, offers.Created, ""))

	res := mustConvert(t, p.ConvertOrdersToPurchases(ctx, testutil.AdminID, orders.Created))
	po, err := s.GetPurchase(ctx, res.Created[0])
	if err != nil {
		t.Fatal(err)
	}
	if models.Deref(po.VendorID) != v.ID {
		t.Errorf("vendor = %q, want %q", models.Deref(po.VendorID), v.ID)
	}
	if po.BuyQty != 50 || po.BuyPriceRMB != 100 || po.SalesPriceRMB != 115 || po.TotalAmount != 5000 {
		t.Errorf("purchase fields: %+v", po)
	}
	so, _ := s.GetOrder(ctx, orders.Created[0])
	if !so.IsTransferred {
		t.Error("order not marked transferred")
	}

	again := p.ConvertOrdersToPurchases(ctx, testutil.AdminID, orders.Created)
	if again.OK || len(again.Errors) != 1 {
		t.Errorf("second conversion: %+v", again)
	}
}

func TestConvertOrderWithoutOfferLeavesPricesZero(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	order := p.AddOrder(ctx, testutil.AdminID, pipeline.NewOrder{
		CliID: c.ID, InquiryMPN: "NE555", InquiryBrand: "TI", Qty: 4, PriceRMB: 3, CostPriceRMB: 2, Remark: "rush",
	})
	if !order.OK {
		t.Fatalf("add order: %+v", order)
	}

	res := mustConvert(t, p.ConvertOrdersToPurchases(ctx, testutil.AdminID, order.Created))
	po, err := s.GetPurchase(ctx, res.Created[0])
	if err != nil {
		t.Fatal(err)
	}
	if po.BuyMPN != "NE555" || po.BuyBrand != "TI" || po.Remark != "rush" {
		t.Errorf("copied fields: %+v", po)
	}
	if po.BuyQty != 0 || po.BuyPriceRMB != 0 || po.SalesPriceRMB != 0 || po.TotalAmount != 0 {
		t.Errorf("qty and prices should be zero without an offer: %+v", po)
	}
	if po.VendorID != nil {
		t.Errorf("vendor = %q, want none", *po.VendorID)
	}
}

func TestAddOfferFromQuote(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 20)
	q := testutil.CreateTestQuote(t, s, c.ID, "LM358", 10, 0)

	res := p.AddOffer(ctx, testutil.AdminID, pipeline.NewOffer{QuoteID: q.ID, InquiryMPN: "LM358", InquiryQty: 10, CostPriceRMB: 10})
	if !res.OK {
		t.Fatalf("add offer: %+v", res)
	}
	o, _ := s.GetOffer(ctx, res.Created[0])
	if o.OfferPriceRMB != 12 || o.QuotedQty != 10 || o.ActualQty != 10 {
		t.Errorf("offer = %+v", o)
	}
	got, _ := s.GetQuote(ctx, q.ID)
	if !got.IsTransferred {
		t.Error("quote not marked transferred")
	}

	again := p.AddOffer(ctx, testutil.AdminID, pipeline.NewOffer{QuoteID: q.ID, InquiryMPN: "LM358"})
	if again.OK || !strings.Contains(again.Message, "already transferred") {
		t.Errorf("second offer: %+v", again)
	}
}

func TestAddOfferKeepsPriceWithoutCost(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	res := p.AddOffer(ctx, testutil.AdminID, pipeline.NewOffer{InquiryMPN: "LM358", OfferPriceRMB: 9.5})
	if !res.OK {
		t.Fatalf("add offer: %+v", res)
	}
	o, _ := s.GetOffer(ctx, res.Created[0])
	if o.OfferPriceRMB != 9.5 {
		t.Errorf("offer price = %v, want 9.5", o.OfferPriceRMB)
	}
}

func TestAddRejectsUnknownReferences(t *testing.T) {
	_, p := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		res  pipeline.Result
	}{
		{"offer vendor", p.AddOffer(ctx, testutil.AdminID, pipeline.NewOffer{InquiryMPN: "LM358", VendorID: "V999"})},
		{"offer quote", p.AddOffer(ctx, testutil.AdminID, pipeline.NewOffer{InquiryMPN: "LM358", QuoteID: "Q-none"})},
		{"order client", p.AddOrder(ctx, testutil.AdminID, pipeline.NewOrder{CliID: "C999", InquiryMPN: "LM358"})},
		{"purchase order", p.AddPurchase(ctx, testutil.AdminID, pipeline.NewPurchase{OrderID: "SO-none", BuyMPN: "LM358"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.res.OK || !strings.Contains(tt.res.Message, "not found") {
				t.Errorf("unexpected result %+v", tt.res)
			}
		})
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	_, p := setup(t)
	ctx := context.Background()
	if res := p.AddOffer(ctx, testutil.AdminID, pipeline.NewOffer{InquiryMPN: ""}); res.OK {
		t.Error("offer without MPN accepted")
	}
	if res := p.AddOrder(ctx, testutil.AdminID, pipeline.NewOrder{InquiryMPN: "LM358"}); res.OK {
		t.Error("order without client accepted")
	}
	if res := p.AddPurchase(ctx, testutil.AdminID, pipeline.NewPurchase{BuyMPN: "LM358", BuyQty: -1}); res.OK {
		t.Error("negative quantity accepted")
	}
}

func TestAddOrderAndPurchase(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	v := testutil.CreateTestVendor(t, s, "Parts Ltd")

	order := p.AddOrder(ctx, testutil.AdminID, pipeline.NewOrder{CliID: c.ID, InquiryMPN: "LM358", Qty: 3, PriceRMB: 2, CostPriceRMB: 1.5})
	if !order.OK {
		t.Fatalf("add order: %+v", order)
	}
	so, _ := s.GetOrder(ctx, order.Created[0])
	if so.PriceKRW != 360 {
		t.Errorf("KRW = %v, want 360", so.PriceKRW)
	}

	buy := p.AddPurchase(ctx, testutil.AdminID, pipeline.NewPurchase{
		OrderID: so.ID, VendorID: v.ID, BuyMPN: "LM358", BuyQty: 3, BuyPriceRMB: 1.234,
	})
	if !buy.OK {
		t.Fatalf("add purchase: %+v", buy)
	}
	po, _ := s.GetPurchase(ctx, buy.Created[0])
	if po.TotalAmount != 3.7 {
		t.Errorf("total = %v, want 3.7", po.TotalAmount)
	}
	so, _ = s.GetOrder(ctx, so.ID)
	if !so.IsTransferred {
		t.Error("order not marked transferred")
	}
}

func TestDeleteReferencedQuote(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	q := testutil.CreateTestQuote(t, s, c.ID, "LM358", 1, 1)
	offers := mustConvert(t, p.ConvertQuotesToOffers(ctx, testutil.AdminID, []string{q.ID}))

	res := p.Delete(ctx, testutil.AdminID, store.Quotes, q.ID)
	if res.OK || !strings.Contains(res.Message, "referenced by downstream record") {
		t.Fatalf("delete referenced quote: %+v", res)
	}
	if _, err := s.GetQuote(ctx, q.ID); err != nil {
		t.Errorf("quote gone: %v", err)
	}

	if res := p.Delete(ctx, testutil.AdminID, store.Offers, offers.Created[0]); !res.OK {
		t.Fatalf("delete offer: %+v", res)
	}
	if res := p.BatchDelete(ctx, testutil.AdminID, store.Quotes, []string{q.ID}); !res.OK || res.Converted != 1 {
		t.Errorf("batch delete: %+v", res)
	}
	if res := p.BatchDelete(ctx, testutil.AdminID, store.Quotes, nil); res.OK {
		t.Error("empty batch delete succeeded")
	}
}

func TestAwaitStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := pipeline.Await(ctx, func() pipeline.Result {
		defer close(finished)
		<-release
		return pipeline.Result{OK: true}
	})
	if err != context.DeadlineExceeded {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if res.OK || res.Message != "stopped waiting for result" {
		t.Errorf("unexpected result %+v", res)
	}
	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Error("work did not finish after Await returned")
	}

	res, err = pipeline.Await(context.Background(), func() pipeline.Result { return pipeline.Result{OK: true} })
	if err != nil || !res.OK {
		t.Errorf("Await dropped a finished result: %+v %v", res, err)
	}
}

func TestConcurrentConversionsConvertEachQuoteOnce(t *testing.T) {
	s, p := setup(t)
	ctx := context.Background()
	c := testutil.CreateTestClient(t, s, "Acme", 10)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, testutil.CreateTestQuote(t, s, c.ID, "LM358", 10, 1).ID)
	}

	const callers = 8
	results := make([]pipeline.Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.ConvertQuotesToOffers(ctx, testutil.AdminID, ids)
		}(i)
	}
	wg.Wait()

	converted := 0
	for _, res := range results {
		converted += res.Converted
		for _, e := range res.Errors {
			if !strings.Contains(e, "already transferred") {
				t.Errorf("unexpected error: %s", e)
			}
		}
	}
	if converted != len(ids) {
		t.Errorf("converted %d quotes across callers, want %d", converted, len(ids))
	}
	if n := testutil.CountRows(t, s.DB(), "offers", ""); n != len(ids) {
		t.Errorf("offers = %d, want %d", n, len(ids))
	}
	for _, id := range ids {
		q, err := s.GetQuote(ctx, id)
		if err != nil || !q.IsTransferred {
			t.Errorf("quote %s not transferred: %v", id, err)
		}
	}
}
