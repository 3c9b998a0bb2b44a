package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tubescribe/tubescribe/model"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// All columns are portable across both dialects: ids are uuid strings,
// timestamps RFC 3339 strings, booleans integers.
var migrations = []string{
	`CREATE TABLE tenant (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	superuser INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
)`,
	`CREATE TABLE tenant_settings (
	tenant_id TEXT PRIMARY KEY REFERENCES tenant(id) ON DELETE CASCADE,
	openai_key TEXT NOT NULL DEFAULT '',
	gemini_key TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE video_item (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL REFERENCES tenant(id) ON DELETE CASCADE,
	youtube_id TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	upload_date TEXT NOT NULL DEFAULT '',
	views INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	last_error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	metadata_fetched_at TEXT NOT NULL DEFAULT '',
	transcribed_at TEXT NOT NULL DEFAULT '',
	summarized_at TEXT NOT NULL DEFAULT '',
	failed_at TEXT NOT NULL DEFAULT '',
	UNIQUE (tenant_id, youtube_id)
)`,
	`CREATE TABLE transcript (
	id TEXT PRIMARY KEY,
	video_item_id TEXT NOT NULL UNIQUE REFERENCES video_item(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	fetched_at TEXT NOT NULL
)`,
	`CREATE TABLE summary (
	id TEXT PRIMARY KEY,
	video_item_id TEXT NOT NULL UNIQUE REFERENCES video_item(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
)`,
	`CREATE INDEX idx_video_item_stage ON video_item(tenant_id, stage)`,
}

// SQL implements Store for both sqlite and postgres. Queries are written
// with ? placeholders and rebound per dialect.
type SQL struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

func newSQL(db *sql.DB, dialect string, logger *slog.Logger) (*SQL, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQL{db: db, dialect: dialect, logger: logger.With("dialect", dialect)}
	if err := s.migrate(migrations); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func (s *SQL) migrate(wanted []string) error {
	table := `CREATE TABLE IF NOT EXISTS migration
(id INTEGER PRIMARY KEY AUTOINCREMENT, query TEXT)`
	if s.dialect == dialectPostgres {
		table = `CREATE TABLE IF NOT EXISTS migration
(id SERIAL PRIMARY KEY, query TEXT)`
	}
	if _, err := s.db.Exec(table); err != nil {
		return err
	}

	rows, err := s.db.Query(`SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}
	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}
	for _, query := range missing {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
		if _, err := s.db.Exec(s.rebind(`INSERT INTO migration (query) VALUES (?)`), query); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		s.logger.Info("applied migrations", "count", len(missing))
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// do nothing
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQL) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQL) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQL) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Tenants

func (s *SQL) CreateTenant(ctx context.Context, name string, superuser bool) (model.Tenant, error) {
	t := model.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Superuser: superuser,
		CreatedAt: time.Now(),
	}
	super := 0
	if superuser {
		super = 1
	}
	_, err := s.exec(ctx, `INSERT INTO tenant (id, name, superuser, created_at) VALUES (?, ?, ?, ?)`,
		t.ID.String(), t.Name, super, encodeTime(t.CreatedAt))
	if err != nil {
		return model.Tenant{}, fmt.Errorf("create tenant %q: %w", name, err)
	}
	return t, nil
}

func scanTenant(row *sql.Row) (model.Tenant, error) {
	var (
		id, name, createdAt string
		super               int
	)
	if err := row.Scan(&id, &name, &super, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tenant{}, model.ErrNotFound
		}
		return model.Tenant{}, err
	}
	tenantID, err := uuid.Parse(id)
	if err != nil {
		return model.Tenant{}, err
	}
	return model.Tenant{
		ID:        tenantID,
		Name:      name,
		Superuser: super != 0,
		CreatedAt: decodeTime(createdAt),
	}, nil
}

func (s *SQL) GetTenant(ctx context.Context, id uuid.UUID) (model.Tenant, error) {
	return scanTenant(s.queryRow(ctx,
		`SELECT id, name, superuser, created_at FROM tenant WHERE id = ?`, id.String()))
}

func (s *SQL) GetTenantByName(ctx context.Context, name string) (model.Tenant, error) {
	return scanTenant(s.queryRow(ctx,
		`SELECT id, name, superuser, created_at FROM tenant WHERE name = ?`, name))
}

func (s *SQL) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.query(ctx, `SELECT id, name, superuser, created_at FROM tenant ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tenants := []model.Tenant{}
	for rows.Next() {
		var (
			id, name, createdAt string
			super               int
		)
		if err := rows.Scan(&id, &name, &super, &createdAt); err != nil {
			return nil, err
		}
		tenantID, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, model.Tenant{
			ID:        tenantID,
			Name:      name,
			Superuser: super != 0,
			CreatedAt: decodeTime(createdAt),
		})
	}
	return tenants, rows.Err()
}

func (s *SQL) EnsureDefaultTenant(ctx context.Context) (model.Tenant, error) {
	t, err := s.GetTenantByName(ctx, DefaultTenantName)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Tenant{}, err
	}
	return s.CreateTenant(ctx, DefaultTenantName, false)
}

func (s *SQL) UpsertTenantSettings(ctx context.Context, settings model.TenantSettings) error {
	settings.UpdatedAt = time.Now()
	_, err := s.exec(ctx, `INSERT INTO tenant_settings (tenant_id, openai_key, gemini_key, provider, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (tenant_id) DO UPDATE SET
	openai_key = excluded.openai_key,
	gemini_key = excluded.gemini_key,
	provider = excluded.provider,
	updated_at = excluded.updated_at`,
		settings.TenantID.String(), settings.OpenAIKey, settings.GeminiKey,
		string(settings.Provider), encodeTime(settings.UpdatedAt))
	return err
}

// GetTenantSettings returns nil without error when the tenant has no
// settings row; defaults apply then.
func (s *SQL) GetTenantSettings(ctx context.Context, tenantID uuid.UUID) (*model.TenantSettings, error) {
	var (
		openaiKey, geminiKey, provider, updatedAt string
	)
	err := s.queryRow(ctx, `SELECT openai_key, gemini_key, provider, updated_at
FROM tenant_settings WHERE tenant_id = ?`, tenantID.String()).
		Scan(&openaiKey, &geminiKey, &provider, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.TenantSettings{
		TenantID:  tenantID,
		OpenAIKey: openaiKey,
		GeminiKey: geminiKey,
		Provider:  model.ProviderName(provider),
		UpdatedAt: decodeTime(updatedAt),
	}, nil
}

// Video items

const videoColumns = `id, tenant_id, youtube_id, url, title, channel, duration_seconds,
upload_date, views, description, stage, failed_stage, last_error,
created_at, updated_at, metadata_fetched_at, transcribed_at, summarized_at, failed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideoItem(row rowScanner) (model.VideoItem, error) {
	var (
		id, tenantID, youtubeID, url, title, channel          string
		uploadDate, description, stage, failedStage, lastErr  string
		createdAt, updatedAt, metadataAt, transcribedAt       string
		summarizedAt, failedAt                                string
		durationSeconds, views                                int64
	)
	err := row.Scan(&id, &tenantID, &youtubeID, &url, &title, &channel, &durationSeconds,
		&uploadDate, &views, &description, &stage, &failedStage, &lastErr,
		&createdAt, &updatedAt, &metadataAt, &transcribedAt, &summarizedAt, &failedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.VideoItem{}, model.ErrNotFound
		}
		return model.VideoItem{}, err
	}

	itemID, err := uuid.Parse(id)
	if err != nil {
		return model.VideoItem{}, err
	}
	ownerID, err := uuid.Parse(tenantID)
	if err != nil {
		return model.VideoItem{}, err
	}
	return model.VideoItem{
		ID:                itemID,
		TenantID:          ownerID,
		YoutubeID:         model.VideoID(youtubeID),
		URL:               url,
		Title:             title,
		Channel:           channel,
		DurationSeconds:   durationSeconds,
		UploadDate:        uploadDate,
		Views:             views,
		Description:       description,
		Stage:             model.Stage(stage),
		FailedStage:       failedStage,
		LastError:         lastErr,
		CreatedAt:         decodeTime(createdAt),
		UpdatedAt:         decodeTime(updatedAt),
		MetadataFetchedAt: decodeTime(metadataAt),
		TranscribedAt:     decodeTime(transcribedAt),
		SummarizedAt:      decodeTime(summarizedAt),
		FailedAt:          decodeTime(failedAt),
	}, nil
}

func (s *SQL) UpsertVideoItem(ctx context.Context, tc model.TenantContext, item model.VideoItem) (model.VideoItem, error) {
	if item.TenantID == uuid.Nil {
		item.TenantID = tc.TenantID
	}
	if !tc.CanWrite(item.TenantID) {
		return model.VideoItem{}, fmt.Errorf("%w: tenant %s cannot write items of tenant %s",
			model.ErrOwnershipViolation, tc.TenantID, item.TenantID)
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Stage == "" {
		item.Stage = model.StagePending
	}
	now := time.Now()
	_, err := s.exec(ctx, `INSERT INTO video_item
(id, tenant_id, youtube_id, url, stage, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, youtube_id) DO NOTHING`,
		item.ID.String(), item.TenantID.String(), string(item.YoutubeID), item.URL,
		string(item.Stage), encodeTime(now), encodeTime(now))
	if err != nil {
		return model.VideoItem{}, fmt.Errorf("upsert video item: %w", err)
	}

	return s.findByYoutubeID(ctx, item.TenantID, item.YoutubeID)
}

// checkTransition enforces forward-only stage movement. Failed absorbs
// from anywhere; leaving failed goes through ResetVideoItem.
func checkTransition(from, to model.Stage) error {
	if from == to || to == model.StageFailed {
		return nil
	}
	if from == model.StageFailed || to.Order() <= from.Order() {
		return fmt.Errorf("%w: %s -> %s", model.ErrStageRegression, from, to)
	}
	return nil
}

func (s *SQL) UpdateVideoItem(ctx context.Context, tc model.TenantContext, item model.VideoItem) (model.VideoItem, error) {
	current, err := s.getVideoItem(ctx, item.ID)
	if err != nil {
		return model.VideoItem{}, err
	}
	if !tc.CanWrite(current.TenantID) {
		return model.VideoItem{}, fmt.Errorf("%w: tenant %s cannot write item %s",
			model.ErrOwnershipViolation, tc.TenantID, item.ID)
	}
	if err := checkTransition(current.Stage, item.Stage); err != nil {
		return model.VideoItem{}, err
	}

	item.UpdatedAt = time.Now()
	_, err = s.exec(ctx, `UPDATE video_item SET
	url = ?, title = ?, channel = ?, duration_seconds = ?, upload_date = ?,
	views = ?, description = ?, stage = ?, failed_stage = ?, last_error = ?,
	updated_at = ?, metadata_fetched_at = ?, transcribed_at = ?, summarized_at = ?, failed_at = ?
WHERE id = ?`,
		item.URL, item.Title, item.Channel, item.DurationSeconds, item.UploadDate,
		item.Views, item.Description, string(item.Stage), item.FailedStage, item.LastError,
		encodeTime(item.UpdatedAt), encodeTime(item.MetadataFetchedAt), encodeTime(item.TranscribedAt),
		encodeTime(item.SummarizedAt), encodeTime(item.FailedAt),
		item.ID.String())
	if err != nil {
		return model.VideoItem{}, fmt.Errorf("update video item: %w", err)
	}
	item.TenantID = current.TenantID
	item.YoutubeID = current.YoutubeID
	item.CreatedAt = current.CreatedAt
	return item, nil
}

func (s *SQL) ResetVideoItem(ctx context.Context, tc model.TenantContext, id uuid.UUID) (model.VideoItem, error) {
	current, err := s.getVideoItem(ctx, id)
	if err != nil {
		return model.VideoItem{}, err
	}
	if !tc.CanWrite(current.TenantID) {
		return model.VideoItem{}, fmt.Errorf("%w: tenant %s cannot reset item %s",
			model.ErrOwnershipViolation, tc.TenantID, id)
	}

	now := time.Now()
	_, err = s.exec(ctx, `UPDATE video_item SET
	stage = ?, failed_stage = '', last_error = '', failed_at = '', updated_at = ?
WHERE id = ?`,
		string(model.StagePending), encodeTime(now), id.String())
	if err != nil {
		return model.VideoItem{}, err
	}
	return s.getVideoItem(ctx, id)
}

// getVideoItem loads by primary key without an ownership check. Callers
// decide between read and write semantics.
func (s *SQL) getVideoItem(ctx context.Context, id uuid.UUID) (model.VideoItem, error) {
	return scanVideoItem(s.queryRow(ctx,
		`SELECT `+videoColumns+` FROM video_item WHERE id = ?`, id.String()))
}

func (s *SQL) GetVideoItem(ctx context.Context, tc model.TenantContext, id uuid.UUID) (model.VideoItem, error) {
	item, err := s.getVideoItem(ctx, id)
	if err != nil {
		return model.VideoItem{}, err
	}
	if !tc.CanRead(item.TenantID) {
		return model.VideoItem{}, fmt.Errorf("%w: tenant %s cannot read item %s",
			model.ErrOwnershipViolation, tc.TenantID, id)
	}
	return item, nil
}

func (s *SQL) findByYoutubeID(ctx context.Context, tenantID uuid.UUID, youtubeID model.VideoID) (model.VideoItem, error) {
	return scanVideoItem(s.queryRow(ctx,
		`SELECT `+videoColumns+` FROM video_item WHERE tenant_id = ? AND youtube_id = ?`,
		tenantID.String(), string(youtubeID)))
}

func (s *SQL) FindByYoutubeID(ctx context.Context, tc model.TenantContext, youtubeID model.VideoID) (model.VideoItem, error) {
	return s.findByYoutubeID(ctx, tc.TenantID, youtubeID)
}

func (s *SQL) ListVideoItems(ctx context.Context, tc model.TenantContext, filter ListFilter) ([]model.VideoItem, error) {
	query := `SELECT ` + videoColumns + ` FROM video_item`
	where := []string{}
	args := []any{}

	if !(filter.AllTenants && tc.Superuser) {
		where = append(where, `tenant_id = ?`)
		args = append(args, tc.TenantID.String())
	}
	if filter.Stage != "" {
		where = append(where, `stage = ?`)
		args = append(args, string(filter.Stage))
	}
	if filter.Category != "" {
		where = append(where, `id IN (SELECT video_item_id FROM summary WHERE category = ?)`)
		args = append(args, filter.Category)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.VideoItem{}
	for rows.Next() {
		item, err := scanVideoItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Transcripts and summaries

// itemOwner returns the owning tenant of a video item.
func (s *SQL) itemOwner(ctx context.Context, videoItemID uuid.UUID) (uuid.UUID, error) {
	var tenantID string
	err := s.queryRow(ctx, `SELECT tenant_id FROM video_item WHERE id = ?`, videoItemID.String()).
		Scan(&tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: video item %s", model.ErrNotFound, videoItemID)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(tenantID)
}

func (s *SQL) UpsertTranscript(ctx context.Context, tc model.TenantContext, t model.Transcript) error {
	owner, err := s.itemOwner(ctx, t.VideoItemID)
	if err != nil {
		return err
	}
	if !tc.CanWrite(owner) {
		return fmt.Errorf("%w: tenant %s cannot write transcript for item %s",
			model.ErrOwnershipViolation, tc.TenantID, t.VideoItemID)
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.FetchedAt.IsZero() {
		t.FetchedAt = time.Now()
	}

	// Replace wholesale so a refetch never leaves stale text behind.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM transcript WHERE video_item_id = ?`),
		t.VideoItemID.String()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO transcript
(id, video_item_id, text, language, source, fetched_at)
VALUES (?, ?, ?, ?, ?, ?)`),
		t.ID.String(), t.VideoItemID.String(), t.Text, t.Language,
		string(t.Source), encodeTime(t.FetchedAt)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQL) GetTranscript(ctx context.Context, tc model.TenantContext, videoItemID uuid.UUID) (model.Transcript, error) {
	owner, err := s.itemOwner(ctx, videoItemID)
	if err != nil {
		return model.Transcript{}, err
	}
	if !tc.CanRead(owner) {
		return model.Transcript{}, fmt.Errorf("%w: tenant %s cannot read transcript for item %s",
			model.ErrOwnershipViolation, tc.TenantID, videoItemID)
	}

	var (
		id, text, language, source, fetchedAt string
	)
	err = s.queryRow(ctx, `SELECT id, text, language, source, fetched_at
FROM transcript WHERE video_item_id = ?`, videoItemID.String()).
		Scan(&id, &text, &language, &source, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transcript{}, fmt.Errorf("%w: transcript for item %s", model.ErrNotFound, videoItemID)
	}
	if err != nil {
		return model.Transcript{}, err
	}
	transcriptID, err := uuid.Parse(id)
	if err != nil {
		return model.Transcript{}, err
	}
	return model.Transcript{
		ID:          transcriptID,
		VideoItemID: videoItemID,
		Text:        text,
		Language:    language,
		Source:      model.TranscriptSource(source),
		FetchedAt:   decodeTime(fetchedAt),
	}, nil
}

func (s *SQL) UpsertSummary(ctx context.Context, tc model.TenantContext, sum model.Summary) error {
	owner, err := s.itemOwner(ctx, sum.VideoItemID)
	if err != nil {
		return err
	}
	if !tc.CanWrite(owner) {
		return fmt.Errorf("%w: tenant %s cannot write summary for item %s",
			model.ErrOwnershipViolation, tc.TenantID, sum.VideoItemID)
	}

	if sum.ID == uuid.Nil {
		sum.ID = uuid.New()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM summary WHERE video_item_id = ?`),
		sum.VideoItemID.String()); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO summary
(id, video_item_id, text, category, provider, model, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		sum.ID.String(), sum.VideoItemID.String(), sum.Text, sum.Category,
		string(sum.Provider), sum.Model, encodeTime(sum.CreatedAt)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQL) GetSummary(ctx context.Context, tc model.TenantContext, videoItemID uuid.UUID) (model.Summary, error) {
	owner, err := s.itemOwner(ctx, videoItemID)
	if err != nil {
		return model.Summary{}, err
	}
	if !tc.CanRead(owner) {
		return model.Summary{}, fmt.Errorf("%w: tenant %s cannot read summary for item %s",
			model.ErrOwnershipViolation, tc.TenantID, videoItemID)
	}

	var (
		id, text, category, provider, modelName, createdAt string
	)
	err = s.queryRow(ctx, `SELECT id, text, category, provider, model, created_at
FROM summary WHERE video_item_id = ?`, videoItemID.String()).
		Scan(&id, &text, &category, &provider, &modelName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Summary{}, fmt.Errorf("%w: summary for item %s", model.ErrNotFound, videoItemID)
	}
	if err != nil {
		return model.Summary{}, err
	}
	summaryID, err := uuid.Parse(id)
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summary{
		ID:          summaryID,
		VideoItemID: videoItemID,
		Text:        text,
		Category:    category,
		Provider:    model.ProviderName(provider),
		Model:       modelName,
		CreatedAt:   decodeTime(createdAt),
	}, nil
}

func (s *SQL) SearchTranscripts(ctx context.Context, tc model.TenantContext, query string, limit int) ([]model.VideoItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, `SELECT `+prefixedVideoColumns(`v`)+`
FROM video_item v
JOIN transcript t ON t.video_item_id = v.id
WHERE v.tenant_id = ? AND t.text LIKE ?
ORDER BY v.created_at, v.id
LIMIT ?`,
		tc.TenantID.String(), "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.VideoItem{}
	for rows.Next() {
		item, err := scanVideoItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func prefixedVideoColumns(alias string) string {
	cols := strings.Split(videoColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (s *SQL) Statistics(ctx context.Context, tc model.TenantContext) (Stats, error) {
	stats := Stats{
		ByStage:    map[model.Stage]int{},
		ByCategory: map[string]int{},
	}

	rows, err := s.query(ctx, `SELECT stage, COUNT(*) FROM video_item
WHERE tenant_id = ? GROUP BY stage`, tc.TenantID.String())
	if err != nil {
		return Stats{}, err
	}
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			rows.Close()
			return Stats{}, err
		}
		stats.ByStage[model.Stage(stage)] = count
		stats.Total += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows, err = s.query(ctx, `SELECT s.category, COUNT(*) FROM summary s
JOIN video_item v ON v.id = s.video_item_id
WHERE v.tenant_id = ? GROUP BY s.category`, tc.TenantID.String())
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return Stats{}, err
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}
