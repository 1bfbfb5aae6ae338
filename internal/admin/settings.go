package admin

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"streammall/internal/backend"
	"streammall/internal/console"
	"streammall/internal/middleware"
	"streammall/internal/viewmodel"
)

const settingsPath = "/admin/settings"

// save-all 表单中每个设置的字段名前缀。
const settingFieldPrefix = "value_"

type settingRowView struct {
	Key         string
	Label       string
	Value       string
	Description string
	Category    string
	Color       string
	UpdatedAt   string
	Editing     bool
	Buffer      string
	Field       string
	EditURL     string
	SaveURL     string
	CancelURL   string
}

type settingsView struct {
	Category   string
	Search     string
	Sort       string
	Categories []option
	Sorts      []option
	Rows       []settingRowView
	Editing    int

	Showing   string
	FetchedAt string
	LoadErr   string
	Empty     bool
	ExportURL string
	Refresh   string
	Self      string
}

var settingSortLabels = map[string]string{
	console.SortKey:     "Key (A-Z)",
	viewmodel.SortValue: "Highest value",
	viewmodel.SortDate:  "Recently updated",
}

func settingsQuery(r *http.Request) viewmodel.Query {
	q := r.URL.Query()
	vq := viewmodel.Query{
		Status: strings.TrimSpace(q.Get("category")),
		Search: q.Get("q"),
		Sort:   strings.TrimSpace(q.Get("sort")),
	}
	if vq.Status == "" {
		vq.Status = viewmodel.StatusAll
	}
	if vq.Sort == "" {
		vq.Sort = console.SortKey
	}
	return vq
}

func settingsValues(vq viewmodel.Query) url.Values {
	q := url.Values{}
	if vq.Status != "" && vq.Status != viewmodel.StatusAll {
		q.Set("category", vq.Status)
	}
	if s := strings.TrimSpace(vq.Search); s != "" {
		q.Set("q", s)
	}
	if vq.Sort != "" && vq.Sort != console.SortKey {
		q.Set("sort", vq.Sort)
	}
	return q
}

func categoryOptions(rows []console.SettingRow, current string) []option {
	seen := map[string]bool{}
	for _, r := range rows {
		if c := strings.TrimSpace(r.Category); c != "" {
			seen[c] = true
		}
	}
	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	out := []option{{Value: viewmodel.StatusAll, Label: "All categories", Selected: current == viewmodel.StatusAll}}
	for _, c := range cats {
		out = append(out, option{Value: c, Label: console.HumanizeKey(c), Selected: c == current})
	}
	return out
}

func (s *Server) Settings(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	vq := settingsQuery(r)
	force := r.URL.Query().Get("refresh") == "1"

	loadErr := ""
	if err := ws.Settings.Ensure(r.Context(), creds, force); err != nil {
		if s.unauthorized(w, r, err) {
			return
		}
		loadErr = backend.UserMessage(err)
	}

	all := ws.Settings.View(viewmodel.Query{})
	v := ws.Settings.View(vq)
	self := withQuery(settingsPath, settingsValues(vq))

	rows := make([]settingRowView, 0, len(v.Rows))
	editing := 0
	for _, row := range v.Rows {
		esc := url.PathEscape(row.Key)
		rows = append(rows, settingRowView{
			Key:         row.Key,
			Label:       row.Label,
			Value:       console.FormatValue(row.Value),
			Description: row.Description,
			Category:    row.Category,
			Color:       row.Color,
			UpdatedAt:   formatTimePtrIn(row.UpdatedAt, s.loc),
			Editing:     row.Editing,
			Buffer:      row.Buffer,
			Field:       settingFieldPrefix + row.Key,
			EditURL:     settingsPath + "/" + esc + "/edit",
			SaveURL:     settingsPath + "/" + esc,
			CancelURL:   settingsPath + "/" + esc + "/cancel",
		})
		if row.Editing {
			editing++
		}
	}

	refresh := settingsValues(vq)
	refresh.Set("refresh", "1")
	view := &settingsView{
		Category:   vq.Status,
		Search:     strings.TrimSpace(vq.Search),
		Sort:       vq.Sort,
		Categories: categoryOptions(all.Rows, vq.Status),
		Sorts:      sortOptions(console.SettingFields.SortKeys(), settingSortLabels, vq.Sort),
		Rows:       rows,
		Editing:    editing,
		Showing:    "Showing " + formatPoints(int64(len(rows))) + " of " + formatPoints(int64(v.Loaded)),
		FetchedAt:  formatTimeIn(v.FetchedAt, s.loc),
		LoadErr:    loadErr,
		Empty:      v.Loaded == 0 && loadErr == "",
		ExportURL:  withQuery(settingsPath+"/export.csv", settingsValues(vq)),
		Refresh:    withQuery(settingsPath, refresh),
		Self:       self,
	}

	s.render(w, r, "admin_settings", templateData{
		Title:    "Platform Settings - StreamMall Admin",
		Active:   "settings",
		Settings: view,
	})
}

func (s *Server) settingKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		s.fail(w, r, settingsPath, backend.Validation("update setting", "Setting key is required"))
		return "", false
	}
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, settingsPath, backend.Validation("update setting", "Invalid form"))
		return "", false
	}
	return key, true
}

func (s *Server) EditSetting(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	key, ok := s.settingKey(w, r)
	if !ok {
		return
	}
	back := returnTo(r, settingsPath)
	if err := ws.Settings.StartEdit(key); err != nil {
		s.fail(w, r, back, err)
		return
	}
	http.Redirect(w, r, back, http.StatusFound)
}

func (s *Server) CancelSettingEdit(w http.ResponseWriter, r *http.Request) {
	ws, _, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	key, ok := s.settingKey(w, r)
	if !ok {
		return
	}
	ws.Settings.CancelEdit(key)
	http.Redirect(w, r, returnTo(r, settingsPath), http.StatusFound)
}

func (s *Server) SaveSetting(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	key, ok := s.settingKey(w, r)
	if !ok {
		return
	}
	back := returnTo(r, settingsPath)

	var desc *string
	if _, has := r.PostForm["description"]; has {
		d := strings.TrimSpace(r.PostFormValue("description"))
		desc = &d
	}
	if err := ws.Settings.Save(r.Context(), creds, key, r.PostFormValue("value"), desc); err != nil {
		s.fail(w, r, back, err)
		return
	}
	s.logger.Info("设置已更新", "key", key)
	s.done(w, r, back, "Setting updated successfully")
}

// SaveAll 串行提交所有设置；表单中 value_<key> 覆盖对应设置的值。
func (s *Server) SaveAllSettings(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, settingsPath, backend.Validation("save settings", "Invalid form"))
		return
	}
	back := returnTo(r, settingsPath)

	values := map[string]string{}
	for field, vs := range r.PostForm {
		if key, found := strings.CutPrefix(field, settingFieldPrefix); found && key != "" && len(vs) > 0 {
			values[key] = vs[0]
		}
	}

	res := ws.Settings.SaveAll(r.Context(), creds, values)
	s.logger.Info("批量保存设置", "updated", len(res.Updated), "failed", len(res.Failed), "outcome", res.Outcome)
	if err := res.Unauthorized(); err != nil {
		s.unauthorized(w, r, err)
		return
	}

	if isAjax(r) {
		status := http.StatusOK
		if res.Outcome == console.OutcomeFailure {
			status = http.StatusBadGateway
		} else {
			middleware.SetFlashNotice(w, r, res.Message())
		}
		writeAjax(w, status, ajaxResponse{
			OK:     res.Outcome != console.OutcomeFailure,
			Notice: normalizeAjaxMessage(res.Message()),
		})
		return
	}
	switch res.Outcome {
	case console.OutcomeSuccess:
		s.done(w, r, back, res.Message())
	default:
		s.fail(w, r, back, &backend.Error{Kind: backend.KindServer, Message: res.Message()})
	}
}

func (s *Server) InitSettings(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.Settings.InitDefaults(r.Context(), creds); err != nil {
		s.fail(w, r, settingsPath, err)
		return
	}
	s.logger.Info("已初始化默认设置")
	s.done(w, r, settingsPath, "Default settings initialized")
}

func (s *Server) ExportSettings(w http.ResponseWriter, r *http.Request) {
	ws, creds, ok := s.requireWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.Settings.Ensure(r.Context(), creds, false); err != nil {
		s.fail(w, r, settingsPath, err)
		return
	}
	var buf strings.Builder
	name, err := ws.Settings.Export(&buf, settingsQuery(r))
	if err != nil {
		s.fail(w, r, settingsPath, err)
		return
	}
	attachment(w, name)
	_, _ = w.Write([]byte(buf.String()))
}
