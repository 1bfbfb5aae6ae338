package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"streammall/internal/backend"
	"streammall/internal/export"
	"streammall/internal/records"
	"streammall/internal/viewmodel"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

type BulkFailure struct {
	Key     string `json:"key"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

type BulkResult struct {
	Updated []string      `json:"updated"`
	Failed  []BulkFailure `json:"failed"`
	Outcome Outcome       `json:"outcome"`
}

// Unauthorized 返回批量保存中遇到的凭证失效错误（若有）。
func (r BulkResult) Unauthorized() error {
	for _, f := range r.Failed {
		if backend.IsKind(f.Err, backend.KindUnauthorized) {
			return f.Err
		}
	}
	return nil
}

func (r BulkResult) Message() string {
	total := len(r.Updated) + len(r.Failed)
	switch r.Outcome {
	case OutcomeSuccess:
		if total == 0 {
			return "No settings to save"
		}
		return fmt.Sprintf("All %d settings saved", total)
	case OutcomePartial:
		keys := make([]string, 0, len(r.Failed))
		for _, f := range r.Failed {
			keys = append(keys, f.Key)
		}
		return fmt.Sprintf("Saved %d of %d settings; failed: %s", len(r.Updated), total, strings.Join(keys, ", "))
	default:
		return "Failed to save settings"
	}
}

func outcomeOf(updated int, failed int) Outcome {
	switch {
	case failed == 0:
		return OutcomeSuccess
	case updated == 0:
		return OutcomeFailure
	default:
		return OutcomePartial
	}
}

// ParseValue 校验设置值：必须是有限的非负数。
func ParseValue(raw string) (float64, error) {
	const op = "update setting"
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, backend.Validation(op, "Value is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, backend.Validation(op, "Value must be a number")
	}
	if v < 0 {
		return 0, backend.Validation(op, "Value must be a non-negative number")
	}
	return v, nil
}

type SettingRow struct {
	backend.Setting
	Label   string
	Color   string
	Editing bool
	Buffer  string
}

type SettingsView struct {
	Query  viewmodel.Query
	Rows   []SettingRow
	Loaded int

	Loading   bool
	Err       error
	FetchedAt time.Time
}

type SettingsPage struct {
	deps  *Deps
	store *records.Store[backend.Setting]

	mu    sync.Mutex
	edits map[string]string
}

func newSettingsPage(deps *Deps) *SettingsPage {
	return &SettingsPage{
		deps:  deps,
		store: records.NewStore[backend.Setting](deps.Now),
		edits: make(map[string]string),
	}
}

func (p *SettingsPage) Ensure(ctx context.Context, creds backend.Credentials, force bool) error {
	if !force && !p.store.Stale(p.deps.RefreshAfter) {
		return nil
	}
	return p.reload(ctx, creds)
}

func (p *SettingsPage) reload(ctx context.Context, creds backend.Credentials) error {
	err := p.store.Load(ctx, func(ctx context.Context) ([]backend.Setting, error) {
		return p.deps.Settings.List(ctx, creds)
	})
	if errors.Is(err, records.ErrStale) {
		return nil
	}
	return err
}

func (p *SettingsPage) find(key string) (backend.Setting, bool) {
	for _, s := range p.store.Snapshot().Items {
		if s.Key == key {
			return s, true
		}
	}
	return backend.Setting{}, false
}

// StartEdit 把当前值复制到该 key 的编辑缓冲。
func (p *SettingsPage) StartEdit(key string) error {
	s, ok := p.find(key)
	if !ok {
		return backend.Validation("edit setting", "Setting not found")
	}
	p.mu.Lock()
	p.edits[key] = FormatValue(s.Value)
	p.mu.Unlock()
	return nil
}

func (p *SettingsPage) CancelEdit(key string) {
	p.mu.Lock()
	delete(p.edits, key)
	p.mu.Unlock()
}

func (p *SettingsPage) Editing(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.edits[key]
	return v, ok
}

func (p *SettingsPage) keepEditing(key string, raw string) {
	p.mu.Lock()
	p.edits[key] = raw
	p.mu.Unlock()
}

// Save 校验后提交单个设置。成功则退出编辑并重新拉取整表；失败则保持编辑状态。
func (p *SettingsPage) Save(ctx context.Context, creds backend.Credentials, key string, raw string, description *string) error {
	key = strings.TrimSpace(key)
	v, err := ParseValue(raw)
	if err != nil {
		p.keepEditing(key, raw)
		return err
	}
	if _, err := p.deps.Settings.Update(ctx, creds, key, v, description); err != nil {
		p.keepEditing(key, raw)
		return err
	}
	p.CancelEdit(key)
	if err := p.reload(ctx, creds); err != nil {
		p.deps.Logger.Warn("保存后刷新设置失败", "key", key, "err", err)
	}
	return nil
}

// SaveAll 逐个（串行）提交全部已加载的设置。values 中缺失的 key 使用编辑缓冲或当前值。
// 部分失败是合法的终态，已成功的不会回滚；结束后重新拉取整表。
func (p *SettingsPage) SaveAll(ctx context.Context, creds backend.Credentials, values map[string]string) BulkResult {
	settings := p.store.Snapshot().Items
	res := BulkResult{Updated: []string{}, Failed: []BulkFailure{}}

	var authErr error
	for _, s := range settings {
		if authErr != nil {
			// 凭证已失效，剩余项不再发请求。
			res.Failed = append(res.Failed, BulkFailure{Key: s.Key, Message: backend.UserMessage(authErr), Err: authErr})
			continue
		}
		raw, ok := values[s.Key]
		if !ok {
			if buf, editing := p.Editing(s.Key); editing {
				raw = buf
			} else {
				raw = FormatValue(s.Value)
			}
		}
		v, err := ParseValue(raw)
		if err == nil {
			_, err = p.deps.Settings.Update(ctx, creds, s.Key, v, nil)
		}
		if err != nil {
			p.keepEditing(s.Key, raw)
			res.Failed = append(res.Failed, BulkFailure{Key: s.Key, Message: backend.UserMessage(err), Err: err})
			if backend.IsKind(err, backend.KindUnauthorized) {
				authErr = err
			}
			continue
		}
		p.CancelEdit(s.Key)
		res.Updated = append(res.Updated, s.Key)
	}
	res.Outcome = outcomeOf(len(res.Updated), len(res.Failed))
	if authErr != nil {
		return res
	}

	if err := p.reload(ctx, creds); err != nil {
		p.deps.Logger.Warn("批量保存后刷新设置失败", "err", err)
	}
	return res
}

// InitDefaults 让后端补齐默认设置（不覆盖已有 key），然后重新拉取。
func (p *SettingsPage) InitDefaults(ctx context.Context, creds backend.Credentials) error {
	if err := p.deps.Settings.Init(ctx, creds); err != nil {
		return err
	}
	return p.reload(ctx, creds)
}

func (p *SettingsPage) View(q viewmodel.Query) SettingsView {
	snap := p.store.Snapshot()
	filtered := SettingFields.Apply(snap.Items, q)

	p.mu.Lock()
	rows := make([]SettingRow, 0, len(filtered))
	for _, s := range filtered {
		buf, editing := p.edits[s.Key]
		rows = append(rows, SettingRow{
			Setting: s,
			Label:   HumanizeKey(s.Key),
			Color:   CategoryColor(s.Category),
			Editing: editing,
			Buffer:  buf,
		})
	}
	p.mu.Unlock()

	return SettingsView{
		Query:     q,
		Rows:      rows,
		Loaded:    len(snap.Items),
		Loading:   snap.Loading,
		Err:       snap.Err,
		FetchedAt: snap.FetchedAt,
	}
}

func (p *SettingsPage) Export(w io.Writer, q viewmodel.Query) (string, error) {
	rows := SettingFields.Apply(p.store.Snapshot().Items, q)
	loc := p.deps.Location
	if err := export.Encode(w, SettingColumns(loc), rows); err != nil {
		return "", err
	}
	return export.Filename("settings", p.deps.Now().In(loc)), nil
}
