package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wappanel/wappanel-backend/app/services"
	"github.com/wappanel/wappanel-backend/models"
	"github.com/wappanel/wappanel-backend/utils"
)

// In-memory repository fakes. The flows under test run with a nil *gorm.DB,
// which makes withTx invoke the callback directly.

type fakeCustomerRepo struct {
	customers map[uint]*models.Customer
}

func newFakeCustomerRepo(customers ...*models.Customer) *fakeCustomerRepo {
	r := &fakeCustomerRepo{customers: make(map[uint]*models.Customer)}
	for _, c := range customers {
		r.customers[c.ID] = c
	}
	return r
}

func (r *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	return r.customers[id], nil
}

func (r *fakeCustomerRepo) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	var out []*models.Customer
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCustomerRepo) Save(ctx context.Context, entity *models.Customer) error {
	if entity.ID == 0 {
		entity.ID = uint(len(r.customers) + 1)
	}
	r.customers[entity.ID] = entity
	return nil
}

func (r *fakeCustomerRepo) SaveBatch(ctx context.Context, entities []*models.Customer) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	return int64(len(r.customers)), nil
}

func (r *fakeCustomerRepo) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	return len(r.customers) > 0, nil
}

func (r *fakeCustomerRepo) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByUUID(ctx context.Context, id string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.UUID.String() == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByGatewayInstanceID(ctx context.Context, instanceID string) (*models.Customer, error) {
	if instanceID == "" {
		return nil, nil
	}
	for _, c := range r.customers {
		if c.GatewayInstanceID == instanceID {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) Update(ctx context.Context, customer models.Customer) error {
	r.customers[customer.ID] = &customer
	return nil
}

type fakeCampaignRepo struct {
	campaigns map[uint]*models.Campaign
	nextID    uint

	pauseCalls  int
	resumeCalls int
	pauseErr    error
}

func newFakeCampaignRepo(campaigns ...*models.Campaign) *fakeCampaignRepo {
	r := &fakeCampaignRepo{campaigns: make(map[uint]*models.Campaign), nextID: 1}
	for _, c := range campaigns {
		if c.ID == 0 {
			c.ID = r.nextID
		}
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.campaigns[c.ID] = c
	}
	return r
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	return r.campaigns[id], nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if filter.CustomerID != nil && c.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, entity *models.Campaign) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = utils.UTCNow()
	}
	r.campaigns[entity.ID] = entity
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.Campaign) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	matched, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, id string) (*models.Campaign, error) {
	for _, c := range r.campaigns {
		if c.UUID.String() == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Campaign, error) {
	return r.ByFilter(ctx, models.CampaignFilter{CustomerID: &customerID}, "", limit, offset)
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign models.Campaign) error {
	r.campaigns[campaign.ID] = &campaign
	return nil
}

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	c, ok := r.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %d not found", id)
	}
	c.Status = status
	return nil
}

func (r *fakeCampaignRepo) IncrementStats(ctx context.Context, id uint, sentDelta, failedDelta int) error {
	c, ok := r.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %d not found", id)
	}
	c.Stats.Sent += sentDelta
	c.Stats.Failed += failedDelta
	return nil
}

func (r *fakeCampaignRepo) PauseSending(ctx context.Context, customerID uint, reason models.PauseReason, at time.Time) ([]*models.Campaign, error) {
	r.pauseCalls++
	if r.pauseErr != nil {
		err := r.pauseErr
		r.pauseErr = nil
		return nil, err
	}
	var paused []*models.Campaign
	for _, c := range r.campaigns {
		if c.CustomerID != customerID || c.Status != models.CampaignStatusSending {
			continue
		}
		snapshot := *c
		paused = append(paused, &snapshot)
		c.Status = models.CampaignStatusPaused
		rs := reason
		c.PauseReason = &rs
		pa := at
		c.PausedAt = &pa
	}
	return paused, nil
}

func (r *fakeCampaignRepo) ResumeDisconnected(ctx context.Context, customerID uint) (int64, error) {
	r.resumeCalls++
	var resumed int64
	for _, c := range r.campaigns {
		if c.CustomerID != customerID || c.Status != models.CampaignStatusPaused {
			continue
		}
		if c.PauseReason == nil || *c.PauseReason != models.PauseReasonDisconnected {
			continue
		}
		c.Status = models.CampaignStatusSending
		c.PauseReason = nil
		c.PausedAt = nil
		resumed++
	}
	return resumed, nil
}

func (r *fakeCampaignRepo) Delete(ctx context.Context, id uint) error {
	delete(r.campaigns, id)
	return nil
}

type fakeContactRepo struct {
	contacts map[uint]*models.Contact
	nextID   uint
}

func newFakeContactRepo(contacts ...*models.Contact) *fakeContactRepo {
	r := &fakeContactRepo{contacts: make(map[uint]*models.Contact), nextID: 1}
	for _, c := range contacts {
		if c.ID == 0 {
			c.ID = r.nextID
		}
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.contacts[c.ID] = c
	}
	return r
}

func (r *fakeContactRepo) ByID(ctx context.Context, id uint) (*models.Contact, error) {
	return r.contacts[id], nil
}

func (r *fakeContactRepo) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, c := range r.contacts {
		if filter.CustomerID != nil && c.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Phone != nil && c.Phone != utils.NormalizePhone(*filter.Phone) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeContactRepo) Save(ctx context.Context, entity *models.Contact) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	r.contacts[entity.ID] = entity
	return nil
}

func (r *fakeContactRepo) SaveBatch(ctx context.Context, entities []*models.Contact) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeContactRepo) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	matched, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (r *fakeContactRepo) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeContactRepo) ByUUID(ctx context.Context, id string) (*models.Contact, error) {
	for _, c := range r.contacts {
		if c.UUID.String() == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeContactRepo) ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Contact, error) {
	return r.ByFilter(ctx, models.ContactFilter{CustomerID: &customerID}, "", limit, offset)
}

func (r *fakeContactRepo) ByPhones(ctx context.Context, customerID uint, phones []string) ([]*models.Contact, error) {
	set := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		set[p] = struct{}{}
	}
	var out []*models.Contact
	for _, c := range r.contacts {
		if c.CustomerID != customerID {
			continue
		}
		if _, ok := set[c.Phone]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeContactRepo) UpsertByPhone(ctx context.Context, contacts []*models.Contact) error {
	for _, c := range contacts {
		conflict := false
		for _, have := range r.contacts {
			if have.CustomerID == c.CustomerID && have.Phone == c.Phone {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		if err := r.Save(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeContactRepo) Update(ctx context.Context, contact models.Contact) error {
	r.contacts[contact.ID] = &contact
	return nil
}

func (r *fakeContactRepo) Delete(ctx context.Context, id uint) error {
	delete(r.contacts, id)
	return nil
}

func (r *fakeContactRepo) RemoveCategoryFromContacts(ctx context.Context, customerID uint, categoryUUID string) (int64, error) {
	var detached int64
	for _, c := range r.contacts {
		if c.CustomerID != customerID {
			continue
		}
		var kept []string
		removed := false
		for _, id := range c.CategoryIDs {
			if id == categoryUUID {
				removed = true
				continue
			}
			kept = append(kept, id)
		}
		if removed {
			c.CategoryIDs = kept
			detached++
		}
	}
	return detached, nil
}

func (r *fakeContactRepo) CountByCategory(ctx context.Context, customerID uint, categoryUUID string) (int64, error) {
	var n int64
	for _, c := range r.contacts {
		if c.CustomerID != customerID {
			continue
		}
		for _, id := range c.CategoryIDs {
			if id == categoryUUID {
				n++
				break
			}
		}
	}
	return n, nil
}

type fakeInstanceStatusRepo struct {
	statuses map[uint]*models.InstanceStatus
	nextID   uint
}

func newFakeInstanceStatusRepo(statuses ...*models.InstanceStatus) *fakeInstanceStatusRepo {
	r := &fakeInstanceStatusRepo{statuses: make(map[uint]*models.InstanceStatus), nextID: 1}
	for _, s := range statuses {
		if s.ID == 0 {
			s.ID = r.nextID
		}
		if s.ID >= r.nextID {
			r.nextID = s.ID + 1
		}
		r.statuses[s.ID] = s
	}
	return r
}

func (r *fakeInstanceStatusRepo) ByID(ctx context.Context, id uint) (*models.InstanceStatus, error) {
	return r.statuses[id], nil
}

func (r *fakeInstanceStatusRepo) ByFilter(ctx context.Context, filter models.InstanceStatusFilter, orderBy string, limit, offset int) ([]*models.InstanceStatus, error) {
	var out []*models.InstanceStatus
	for _, s := range r.statuses {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeInstanceStatusRepo) Save(ctx context.Context, entity *models.InstanceStatus) error {
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
	}
	r.statuses[entity.ID] = entity
	return nil
}

func (r *fakeInstanceStatusRepo) SaveBatch(ctx context.Context, entities []*models.InstanceStatus) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeInstanceStatusRepo) Count(ctx context.Context, filter models.InstanceStatusFilter) (int64, error) {
	return int64(len(r.statuses)), nil
}

func (r *fakeInstanceStatusRepo) Exists(ctx context.Context, filter models.InstanceStatusFilter) (bool, error) {
	return len(r.statuses) > 0, nil
}

// Lookups return copies, like real row scans, so mutations only land in the
// store through Save or Update.
func (r *fakeInstanceStatusRepo) ByCustomerID(ctx context.Context, customerID uint) (*models.InstanceStatus, error) {
	for _, s := range r.statuses {
		if s.CustomerID == customerID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeInstanceStatusRepo) ByInstanceID(ctx context.Context, instanceID string) (*models.InstanceStatus, error) {
	for _, s := range r.statuses {
		if s.InstanceID == instanceID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeInstanceStatusRepo) Update(ctx context.Context, status models.InstanceStatus) error {
	r.statuses[status.ID] = &status
	return nil
}

// fakeTaskQueue records enqueued and cancelled tasks
type fakeTaskQueue struct {
	enqueued  []services.CampaignTask
	cancelled []string
	failNext  bool
}

func (q *fakeTaskQueue) Enqueue(ctx context.Context, campaignID string, at time.Time) (string, error) {
	if q.failNext {
		q.failNext = false
		return "", fmt.Errorf("queue unavailable")
	}
	task := services.CampaignTask{
		TaskID:     uuid.New().String(),
		CampaignID: campaignID,
		Action:     services.TaskActionStart,
	}
	q.enqueued = append(q.enqueued, task)
	return task.TaskID, nil
}

func (q *fakeTaskQueue) Cancel(ctx context.Context, taskID string) error {
	q.cancelled = append(q.cancelled, taskID)
	return nil
}

func (q *fakeTaskQueue) PopDue(ctx context.Context, now time.Time, limit int64) ([]services.CampaignTask, error) {
	return nil, nil
}

// fakeGatewayClient serves canned connection states
type fakeGatewayClient struct {
	state      string
	logoutErr  error
	fetchCalls int
}

func (g *fakeGatewayClient) FetchState(ctx context.Context, instanceID, token string) (*services.GatewayInstanceState, error) {
	g.fetchCalls++
	return &services.GatewayInstanceState{Instance: instanceID, State: g.state}, nil
}

func (g *fakeGatewayClient) Connect(ctx context.Context, instanceID, token string) (json.RawMessage, error) {
	return json.RawMessage(`{"pairingCode":"ABCD-1234"}`), nil
}

func (g *fakeGatewayClient) Logout(ctx context.Context, instanceID, token string) error {
	return g.logoutErr
}

func activeCustomer(id uint, instanceID string) *models.Customer {
	active := true
	return &models.Customer{
		ID:                id,
		UUID:              uuid.New(),
		Email:             fmt.Sprintf("tenant%d@example.com", id),
		Name:              fmt.Sprintf("Tenant %d", id),
		IsActive:          &active,
		GatewayInstanceID: instanceID,
		GatewayToken:      "gw-token",
	}
}
