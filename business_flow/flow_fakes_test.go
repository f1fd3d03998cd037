package businessflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lanternmail/lantern/app/services"
	"github.com/lanternmail/lantern/models"
)

// In-memory repository doubles used by the flow tests. They keep the same
// semantics as the gorm-backed implementations for the operations the flows
// exercise; everything else returns errNotImplemented.

var errNotImplemented = errors.New("not implemented in fake")

type fakeChannelRepo struct {
	mu       sync.Mutex
	channels map[uint]*models.Channel
	nextID   uint
	lookups  int
}

func newFakeChannelRepo(channels ...*models.Channel) *fakeChannelRepo {
	r := &fakeChannelRepo{channels: make(map[uint]*models.Channel), nextID: 1}
	for _, c := range channels {
		r.channels[c.ID] = c
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	return r
}

func (r *fakeChannelRepo) ByID(ctx context.Context, id uint) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels[id], nil
}

func (r *fakeChannelRepo) ByFilter(ctx context.Context, filter models.ChannelFilter, orderBy string, limit, offset int) ([]*models.Channel, error) {
	return nil, errNotImplemented
}

func (r *fakeChannelRepo) Save(ctx context.Context, channel *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel.ID == 0 {
		channel.ID = r.nextID
		r.nextID++
	}
	r.channels[channel.ID] = channel
	return nil
}

func (r *fakeChannelRepo) SaveBatch(ctx context.Context, channels []*models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range channels {
		r.channels[c.ID] = c
	}
	return nil
}

func (r *fakeChannelRepo) Count(ctx context.Context, filter models.ChannelFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.channels)), nil
}

func (r *fakeChannelRepo) Exists(ctx context.Context, filter models.ChannelFilter) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels) > 0, nil
}

func (r *fakeChannelRepo) ByIDs(ctx context.Context, ids []uint) ([]*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*models.Channel, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.channels[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *fakeChannelRepo) TitlesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	titles := make(map[uint]string)
	for _, id := range ids {
		if c, ok := r.channels[id]; ok {
			titles[id] = c.Title
		}
	}
	return titles, nil
}

func (r *fakeChannelRepo) Update(ctx context.Context, channel *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[channel.ID] = channel
	return nil
}

func (r *fakeChannelRepo) List(ctx context.Context, limit, offset int) ([]*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]*models.Channel, 0, len(ids))
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, r.channels[id])
	}
	return result, nil
}

type fakeRecipientRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   []*models.Recipient

	saveErr error
}

func newFakeRecipientRepo() *fakeRecipientRepo {
	return &fakeRecipientRepo{nextID: 1}
}

func (r *fakeRecipientRepo) add(row *models.Recipient) *models.Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	row.ID = r.nextID
	r.nextID++
	r.rows = append(r.rows, row)
	return row
}

func (r *fakeRecipientRepo) ByID(ctx context.Context, id uint) (*models.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (r *fakeRecipientRepo) ByFilter(ctx context.Context, filter models.RecipientFilter, orderBy string, limit, offset int) ([]*models.Recipient, error) {
	return nil, errNotImplemented
}

func (r *fakeRecipientRepo) Save(ctx context.Context, recipient *models.Recipient) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.add(recipient)
	return nil
}

func (r *fakeRecipientRepo) SaveBatch(ctx context.Context, recipients []*models.Recipient) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, recipient := range recipients {
		r.add(recipient)
	}
	return nil
}

func (r *fakeRecipientRepo) Count(ctx context.Context, filter models.RecipientFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeRecipientRepo) Exists(ctx context.Context, filter models.RecipientFilter) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows) > 0, nil
}

func (r *fakeRecipientRepo) ListUnconfirmed(ctx context.Context, email string, channelIDs []uint) ([]*models.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Recipient
	for _, row := range r.rows {
		if row.Email == email && containsID(channelIDs, row.ChannelID) && !row.IsConfirmed() {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *fakeRecipientRepo) Delete(ctx context.Context, recipient *models.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = filterRows(r.rows, func(row *models.Recipient) bool {
		return row.ID != recipient.ID
	})
	return nil
}

func (r *fakeRecipientRepo) DeleteUnconfirmed(ctx context.Context, email string, channelIDs []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = filterRows(r.rows, func(row *models.Recipient) bool {
		return !(row.Email == email && containsID(channelIDs, row.ChannelID) && !row.IsConfirmed())
	})
	return nil
}

func (r *fakeRecipientRepo) DeleteActive(ctx context.Context, email string, channelIDs []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = filterRows(r.rows, func(row *models.Recipient) bool {
		return !(row.Email == email && containsID(channelIDs, row.ChannelID) && row.IsActive())
	})
	return nil
}

func (r *fakeRecipientRepo) ListByToken(ctx context.Context, token string) ([]*models.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Recipient
	for _, row := range r.rows {
		if row.Token == token {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *fakeRecipientRepo) ConfirmByToken(ctx context.Context, token string, confirmedOn time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, row := range r.rows {
		if row.Token == token && !row.IsConfirmed() {
			active := true
			confirmed := true
			when := confirmedOn
			row.Active = &active
			row.Confirmed = &confirmed
			row.ConfirmedOn = &when
			affected++
		}
	}
	return affected, nil
}

func (r *fakeRecipientRepo) ListByChannel(ctx context.Context, channelID uint, onlyActive bool, limit, offset int) ([]*models.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Recipient
	for _, row := range r.rows {
		if row.ChannelID != channelID {
			continue
		}
		if onlyActive && !row.IsActive() {
			continue
		}
		result = append(result, row)
	}
	return result, nil
}

func (r *fakeRecipientRepo) all() []*models.Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.Recipient(nil), r.rows...)
}

type blacklistKey struct {
	hash      string
	channelID uint
}

type fakeBlacklistRepo struct {
	mu      sync.Mutex
	nextID  uint
	entries map[blacklistKey]*models.BlacklistEntry
}

func newFakeBlacklistRepo() *fakeBlacklistRepo {
	return &fakeBlacklistRepo{nextID: 1, entries: make(map[blacklistKey]*models.BlacklistEntry)}
}

func (r *fakeBlacklistRepo) ByID(ctx context.Context, id uint) (*models.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, nil
}

func (r *fakeBlacklistRepo) ByFilter(ctx context.Context, filter models.BlacklistEntryFilter, orderBy string, limit, offset int) ([]*models.BlacklistEntry, error) {
	return nil, errNotImplemented
}

func (r *fakeBlacklistRepo) Save(ctx context.Context, entry *models.BlacklistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextID
	r.nextID++
	r.entries[blacklistKey{entry.EmailHash, entry.ChannelID}] = entry
	return nil
}

func (r *fakeBlacklistRepo) SaveBatch(ctx context.Context, entries []*models.BlacklistEntry) error {
	for _, entry := range entries {
		if err := r.Save(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeBlacklistRepo) Count(ctx context.Context, filter models.BlacklistEntryFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeBlacklistRepo) Exists(ctx context.Context, filter models.BlacklistEntryFilter) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) > 0, nil
}

func (r *fakeBlacklistRepo) ByHashAndChannel(ctx context.Context, emailHash string, channelID uint) (*models.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[blacklistKey{emailHash, channelID}], nil
}

func (r *fakeBlacklistRepo) Delete(ctx context.Context, entry *models.BlacklistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, blacklistKey{entry.EmailHash, entry.ChannelID})
	return nil
}

func (r *fakeBlacklistRepo) DeleteByHashAndChannel(ctx context.Context, emailHash string, channelID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, blacklistKey{emailHash, channelID})
	return nil
}

func (r *fakeBlacklistRepo) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, errNotImplemented
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, errNotImplemented
}

func (r *fakeAuditRepo) Save(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = uint(len(r.logs) + 1)
	r.logs = append(r.logs, log)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, logs []*models.AuditLog) error {
	for _, log := range logs {
		if err := r.Save(ctx, log); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.logs)), nil
}

func (r *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs) > 0, nil
}

func (r *fakeAuditRepo) ListByEmail(ctx context.Context, email string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, errNotImplemented
}

func (r *fakeAuditRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.AuditLog
	for _, log := range r.logs {
		if log.Action == action {
			result = append(result, log)
		}
	}
	return result, nil
}

func (r *fakeAuditRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return nil, errNotImplemented
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, 0, len(r.logs))
	for _, log := range r.logs {
		actions = append(actions, log.Action)
	}
	return actions
}

type dispatchCall struct {
	templateID string
	payload    map[string]string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (d *fakeDispatcher) Send(ctx context.Context, templateID string, payload map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, dispatchCall{templateID: templateID, payload: payload})
	return nil
}

func (d *fakeDispatcher) sent() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatchCall(nil), d.calls...)
}

type fakeAdminRepo struct {
	mu        sync.Mutex
	admins    map[string]*models.Admin
	lastLogin map[uint]time.Time
}

func newFakeAdminRepo(admins ...*models.Admin) *fakeAdminRepo {
	r := &fakeAdminRepo{admins: make(map[string]*models.Admin), lastLogin: make(map[uint]time.Time)}
	for _, a := range admins {
		r.admins[a.Username] = a
	}
	return r
}

func (r *fakeAdminRepo) ByID(ctx context.Context, id uint) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAdminRepo) ByFilter(ctx context.Context, filter models.AdminFilter, orderBy string, limit, offset int) ([]*models.Admin, error) {
	return nil, errNotImplemented
}

func (r *fakeAdminRepo) Save(ctx context.Context, admin *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[admin.Username] = admin
	return nil
}

func (r *fakeAdminRepo) SaveBatch(ctx context.Context, admins []*models.Admin) error {
	for _, a := range admins {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAdminRepo) Count(ctx context.Context, filter models.AdminFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.admins)), nil
}

func (r *fakeAdminRepo) Exists(ctx context.Context, filter models.AdminFilter) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.admins) > 0, nil
}

func (r *fakeAdminRepo) ByUsername(ctx context.Context, username string) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admins[username], nil
}

func (r *fakeAdminRepo) UpdateLastLogin(ctx context.Context, adminID uint, when time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLogin[adminID] = when
	return nil
}

// fakeCaptchaService accepts one well-known challenge ID and rejects
// everything else.
type fakeCaptchaService struct {
	validChallengeID string
}

func (s *fakeCaptchaService) GenerateRotate(ctx context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{
		ID:                s.validChallengeID,
		MasterImageBase64: "master-image",
		ThumbImageBase64:  "thumb-image",
	}, nil
}

func (s *fakeCaptchaService) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	return challengeID == s.validChallengeID
}

func (s *fakeCaptchaService) Close() {}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func filterRows(rows []*models.Recipient, keep func(*models.Recipient) bool) []*models.Recipient {
	result := rows[:0]
	for _, row := range rows {
		if keep(row) {
			result = append(result, row)
		}
	}
	return result
}
