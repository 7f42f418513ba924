package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"github.com/shopspring/decimal"
)

func TestInvoiceLifecycle_NumberingAndCustomerRollup(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	org, err := models.CreateOrganization(ctx, &models.NewOrganization{
		Name:  "Translation Bureau",
		Email: "owner@bureau.test",
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	ctx = utils.SetOrganizationIdInContext(ctx, org.ID.String())

	cust, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Golden Land Co"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	year := time.Now().UTC().Year()
	issueDate := time.Now().UTC().Add(-48 * time.Hour)
	dueDate := time.Now().UTC().Add(30 * 24 * time.Hour)

	newInvoice := func() *models.NewInvoice {
		return &models.NewInvoice{
			CustomerId: cust.ID,
			IssueDate:  issueDate,
			DueDate:    dueDate,
			Tax:        decimal.NewFromInt(10),
			Discount:   decimal.NewFromInt(20),
			Items: []*models.NewInvoiceItem{
				{Description: "Legal translation", PageQty: decimal.NewFromInt(10), Rate: decimal.NewFromInt(10), Amount: decimal.NewFromInt(100)},
				{Description: "Notarization", ServiceCharge: decimal.NewFromInt(50), Amount: decimal.NewFromInt(50)},
			},
		}
	}

	// First invoice of the year starts the sequence at 1.
	first, err := models.CreateInvoice(ctx, newInvoice())
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if expected := models.FormatInvoiceNumber(year, 1); first.InvoiceNumber != expected {
		t.Fatalf("first invoice number expected %s, got %s", expected, first.InvoiceNumber)
	}
	if !first.SubTotal.Equal(decimal.NewFromInt(150)) || !first.Total.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("totals expected 150/140, got %s/%s", first.SubTotal, first.Total)
	}
	if first.Status != models.InvoiceStatusDraft {
		t.Fatalf("new invoice should be a draft, got %s", first.Status)
	}
	if first.NumberingAnomaly != nil {
		t.Fatalf("unexpected numbering anomaly: %+v", first.NumberingAnomaly)
	}

	// Drafts do not touch the customer rollup.
	c, err := models.GetCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if !c.TotalInvoiced.Equal(decimal.Zero) || !c.OutstandingBalance.Equal(decimal.Zero) {
		t.Fatalf("draft creation must not change rollup, got invoiced=%s outstanding=%s", c.TotalInvoiced, c.OutstandingBalance)
	}

	// Drafts cannot receive payments.
	if _, err := models.RecordInvoicePayment(ctx, first.ID, &models.NewPayment{Amount: decimal.NewFromInt(10)}); err == nil {
		t.Fatalf("expected payment against draft to fail")
	}

	// Concurrent creations must never collide on a number.
	const workers = 8
	var mu sync.Mutex
	numbers := map[string]bool{first.InvoiceNumber: true}
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := models.CreateInvoice(ctx, newInvoice())
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if numbers[inv.InvoiceNumber] {
				errCh <- fmt.Errorf("duplicate invoice number assigned: %s", inv.InvoiceNumber)
				return
			}
			numbers[inv.InvoiceNumber] = true
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent create: %v", err)
	}
	if len(numbers) != workers+1 {
		t.Fatalf("expected %d distinct numbers, got %d", workers+1, len(numbers))
	}

	// Sending applies the invoiced rollup in the same transaction.
	sent, err := models.SendInvoice(ctx, first.ID)
	if err != nil {
		t.Fatalf("SendInvoice: %v", err)
	}
	if sent.Status != models.InvoiceStatusSent || sent.SentAt == nil {
		t.Fatalf("expected sent status with timestamp, got %s / %v", sent.Status, sent.SentAt)
	}
	if _, err := models.SendInvoice(ctx, first.ID); err == nil {
		t.Fatalf("expected re-send of a sent invoice to fail")
	}

	c, err = models.GetCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("GetCustomer after send: %v", err)
	}
	if !c.TotalInvoiced.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("total_invoiced expected 140, got %s", c.TotalInvoiced)
	}
	if !c.OutstandingBalance.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("outstanding_balance expected 140, got %s", c.OutstandingBalance)
	}
	if c.LastInvoiceDate == nil {
		t.Fatalf("last_invoice_date should be stamped on send")
	}

	// Overpayment: invoice closes at paid, customer carries the credit as a
	// negative balance, never clamped.
	paid, err := models.RecordInvoicePayment(ctx, first.ID, &models.NewPayment{
		Amount:      decimal.NewFromInt(240),
		PaymentMode: models.PaymentModeBankTransfer,
	})
	if err != nil {
		t.Fatalf("RecordInvoicePayment: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected paid status with timestamp, got %s / %v", paid.Status, paid.PaidAt)
	}
	if !paid.PaidAmount.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("paid_amount expected 240, got %s", paid.PaidAmount)
	}

	c, err = models.GetCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("GetCustomer after payment: %v", err)
	}
	if !c.TotalPaid.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("total_paid expected 240, got %s", c.TotalPaid)
	}
	if !c.OutstandingBalance.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("outstanding_balance expected -100 (credit), got %s", c.OutstandingBalance)
	}

	// Paid invoices are immutable.
	if _, err := models.UpdateInvoice(ctx, first.ID, newInvoice()); err == nil {
		t.Fatalf("expected update of paid invoice to fail")
	}

	// Every domain operation staged its notification.
	db := config.GetDB()
	var outboxCount int64
	if err := db.Model(&models.OutboxMessage{}).
		Where("organization_id = ? AND publish_status = ?", org.ID.String(), models.OutboxPublishStatusPending).
		Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount < 2 {
		t.Fatalf("expected at least 2 pending outbox rows (send + payment), got %d", outboxCount)
	}
}

func TestInvoiceOverdue_DerivedStatusAndReminderThrottle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	org, err := models.CreateOrganization(ctx, &models.NewOrganization{Name: "Overdue Co"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	ctx = utils.SetOrganizationIdInContext(ctx, org.ID.String())

	cust, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Late Payer"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// Both dates in the past: already overdue the moment it is sent.
	inv, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerId: cust.ID,
		IssueDate:  time.Now().UTC().Add(-40 * 24 * time.Hour),
		DueDate:    time.Now().UTC().Add(-10 * 24 * time.Hour),
		Items: []*models.NewInvoiceItem{
			{Description: "Certified copy", Amount: decimal.NewFromInt(500)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// Any unpaid invoice past its due date displays overdue, drafts
	// included; the stored status stays draft and reminders still require
	// the invoice to have been sent.
	got, err := models.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.Status != models.InvoiceStatusOverdue {
		t.Fatalf("past-due draft should display overdue, got %s", got.Status)
	}
	if _, err := models.SendInvoiceReminder(ctx, inv.ID); err == nil {
		t.Fatalf("expected reminder for an unsent draft to fail")
	}
	overdueStatus := models.InvoiceStatusOverdue
	listed, err := models.GetInvoices(ctx, nil, &overdueStatus, nil, nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("GetInvoices(overdue) before send: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != inv.ID {
		t.Fatalf("overdue filter should include the past-due draft, got %d rows", len(listed))
	}
	draftStatus := models.InvoiceStatusDraft
	listed, err = models.GetInvoices(ctx, nil, &draftStatus, nil, nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("GetInvoices(draft): %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("draft filter should exclude past-due drafts, got %d rows", len(listed))
	}

	if _, err := models.SendInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("SendInvoice: %v", err)
	}

	got, err = models.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice after send: %v", err)
	}
	if got.Status != models.InvoiceStatusOverdue {
		t.Fatalf("sent past due should display overdue, got %s", got.Status)
	}

	// The stored status is still "sent"; the overdue filter translates.
	listed, err = models.GetInvoices(ctx, nil, &overdueStatus, nil, nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("GetInvoices(overdue): %v", err)
	}
	if len(listed) != 1 || listed[0].ID != inv.ID {
		t.Fatalf("overdue filter expected exactly the one invoice, got %d rows", len(listed))
	}
	sentStatus := models.InvoiceStatusSent
	listed, err = models.GetInvoices(ctx, nil, &sentStatus, nil, nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("GetInvoices(sent): %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("sent filter should exclude past-due invoices, got %d rows", len(listed))
	}

	// One reminder per invoice per day.
	if _, err := models.SendInvoiceReminder(ctx, inv.ID); err != nil {
		t.Fatalf("SendInvoiceReminder: %v", err)
	}
	if _, err := models.SendInvoiceReminder(ctx, inv.ID); err == nil {
		t.Fatalf("expected same-day second reminder to be throttled")
	}

	// Paying clears the invoice from the overdue view.
	if _, err := models.RecordInvoicePayment(ctx, inv.ID, &models.NewPayment{Amount: decimal.NewFromInt(500)}); err != nil {
		t.Fatalf("RecordInvoicePayment: %v", err)
	}
	listed, err = models.GetInvoices(ctx, nil, &overdueStatus, nil, nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("GetInvoices(overdue) after payment: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("paid invoice must not appear overdue, got %d rows", len(listed))
	}
	if _, err := models.SendInvoiceReminder(ctx, inv.ID); err == nil {
		t.Fatalf("expected reminder for paid invoice to fail")
	}
}

func TestInvoiceConcurrentTransitions_SingleSendAndSummedPayments(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := setupIntegrationEnv(t)

	org, err := models.CreateOrganization(ctx, &models.NewOrganization{Name: "Race Course Ltd"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	ctx = utils.SetOrganizationIdInContext(ctx, org.ID.String())

	cust, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Punctual Pte"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	inv, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerId: cust.ID,
		IssueDate:  time.Now().UTC(),
		DueDate:    time.Now().UTC().Add(30 * 24 * time.Hour),
		Items: []*models.NewInvoiceItem{
			{Description: "Interpretation day rate", Amount: decimal.NewFromInt(140)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	// Concurrent sends: exactly one transition wins, so the customer is
	// invoiced exactly once.
	const senders = 4
	sendErrs := make(chan error, senders)
	for i := 0; i < senders; i++ {
		go func() {
			_, err := models.SendInvoice(ctx, inv.ID)
			sendErrs <- err
		}()
	}
	succeeded := 0
	for i := 0; i < senders; i++ {
		if err := <-sendErrs; err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one concurrent send to succeed, got %d", succeeded)
	}

	c, err := models.GetCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("GetCustomer after concurrent sends: %v", err)
	}
	if !c.TotalInvoiced.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("total_invoiced must count the send once, expected 140, got %s", c.TotalInvoiced)
	}

	// Concurrent payments: paid_amount ends at the sum of all recorded
	// payments, with no lost increments.
	const payers = 7
	payErrs := make(chan error, payers)
	for i := 0; i < payers; i++ {
		go func() {
			_, err := models.RecordInvoicePayment(ctx, inv.ID, &models.NewPayment{Amount: decimal.NewFromInt(20)})
			payErrs <- err
		}()
	}
	for i := 0; i < payers; i++ {
		if err := <-payErrs; err != nil {
			t.Fatalf("concurrent payment: %v", err)
		}
	}

	got, err := models.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice after concurrent payments: %v", err)
	}
	if !got.PaidAmount.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("paid_amount expected 140 (7 x 20), got %s", got.PaidAmount)
	}
	if got.Status != models.InvoiceStatusPaid {
		t.Fatalf("fully covered invoice should be paid, got %s", got.Status)
	}

	c, err = models.GetCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("GetCustomer after concurrent payments: %v", err)
	}
	if !c.TotalPaid.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("total_paid expected 140, got %s", c.TotalPaid)
	}
	if !c.OutstandingBalance.Equal(decimal.Zero) {
		t.Fatalf("outstanding_balance expected 0, got %s", c.OutstandingBalance)
	}
}

func setupIntegrationEnv(t *testing.T) context.Context {
	t.Helper()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "invoicing_test")
	t.Setenv("DISABLE_SWEEPS", "true")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "test@local")
	return ctx
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("invoicing-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("invoicing-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=invoicing_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
