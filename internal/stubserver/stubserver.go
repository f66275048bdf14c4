// Package stubserver はバックエンドAPIのインメモリ実装を提供する。
// 統合テストとローカル開発で実サーバーの代わりに使用する。
// 実装する契約: 認証、SEO分析結果、画像生成、ユーザー管理の各エンドポイント。
package stubserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// userRecord はスタブ内部のユーザー表現。パスワードを平文で保持する
// （テスト専用であり本物の認証基盤ではない）。
type userRecord struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"-"`
}

// resultRecord はスタブ内部のSEO分析結果。
type resultRecord struct {
	ID               int    `json:"id"`
	Domain           string `json:"domain"`
	CreatedAt        string `json:"created_at"`
	Username         string `json:"username"`
	ShortDescription string `json:"short_description"`
	LongDescription  string `json:"long_description"`
	Keywords         string `json:"keywords"`
	OpeningHours     string `json:"opening_hours"`
	CompanyInfo      string `json:"company_info"`
}

// summaryOf は一覧応答用のサマリー表現を返す。
func summaryOf(r resultRecord) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"domain":     r.Domain,
		"created_at": r.CreatedAt,
		"username":   r.Username,
	}
}

// imageRecord はスタブ内部の生成画像。
type imageRecord struct {
	ID        int    `json:"id"`
	ImageURL  string `json:"image_url"`
	ImageType string `json:"image_type"`
	ImageSize string `json:"image_size"`
	UserInput string `json:"user_input"`
	CreatedAt string `json:"created_at"`
}

// Server はインメモリのスタブバックエンド。
// すべてのハンドラは並行リクエストに対して安全。
type Server struct {
	mu      sync.Mutex
	users   []userRecord
	results []resultRecord
	images  []imageRecord
	tokens  map[string]string // token -> username
	nextID  int

	router chi.Router
}

// New はスタブサーバーを生成する。
// 初期状態として管理者アカウント admin/admin を持つ。
func New() *Server {
	s := &Server{
		users: []userRecord{
			{ID: 1, Username: "admin", Email: "admin@example.de", Role: "admin", Password: "admin"},
		},
		tokens: make(map[string]string),
		nextID: 2,
	}
	s.router = s.buildRouter()
	return s
}

// Handler はHTTPハンドラを返す。httptest.NewServerにそのまま渡せる。
func (s *Server) Handler() http.Handler {
	return s.router
}

// SeedResult は分析結果を直接投入する。テストのセットアップ用。
func (s *Server) SeedResult(domain, username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertResultLocked(domain, username)
}

// SeedUser はユーザーを直接投入する。テストのセットアップ用。
func (s *Server) SeedUser(username, email, role, password string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.users = append(s.users, userRecord{
		ID: id, Username: username, Email: email, Role: role, Password: password,
	})
	return id
}

// RevokeTokens は発行済みトークンをすべて無効化する。
// セッション失効シナリオのテストに使用する。
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		// 以降は認証必須
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/auth/logout", s.handleLogout)

			r.Get("/seo/results", s.handleListResults)
			r.Get("/seo/results/{id}", s.handleGetResult)
			r.Delete("/seo/results/{id}", s.handleDeleteResult)
			r.Post("/seo/analyze", s.handleAnalyze)
			r.Get("/seo/domains/autocomplete", s.handleAutocomplete)

			r.Post("/images/generate", s.handleGenerateImage)
			r.Get("/images/history", s.handleImageHistory)
			r.Delete("/images/delete/{id}", s.handleDeleteImage)

			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleCreateUser)
			r.Put("/users/{id}", s.handleUpdateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)
		})
	})

	return r
}

// --- ミドルウェア ---

// requireAuth はBearerトークンを検証する。
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentifizierung erforderlich")
			return
		}

		s.mu.Lock()
		_, valid := s.tokens[token]
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "Token ungültig oder abgelaufen")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUsername はリクエストのトークンからユーザー名を引く。
func (s *Server) currentUsername(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

// --- 認証 ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Ungültiger Request-Body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == req.Username && u.Password == req.Password {
			token := newToken()
			s.tokens[token] = u.Username
			writeJSON(w, http.StatusOK, map[string]any{
				"token": token,
				"user": map[string]string{
					"username": u.Username,
					"role":     u.Role,
				},
			})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Ungültige Anmeldedaten")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Abgemeldet"})
}

// --- SEO分析結果 ---

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r, 10)
	search := r.URL.Query().Get("search")

	s.mu.Lock()
	defer s.mu.Unlock()

	// 新しい順に返す
	filtered := make([]resultRecord, 0, len(s.results))
	for i := len(s.results) - 1; i >= 0; i-- {
		rec := s.results[i]
		if search == "" || strings.Contains(rec.Domain, strings.ToLower(search)) {
			filtered = append(filtered, rec)
		}
	}

	total := len(filtered)
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	summaries := make([]map[string]any, 0, end-start)
	for _, rec := range filtered[start:end] {
		summaries = append(summaries, summaryOf(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":      summaries,
		"total":        total,
		"pages":        pages,
		"current_page": page,
		"per_page":     perPage,
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.results {
		if rec.ID == id {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Ergebnis nicht gefunden")
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.results {
		if rec.ID == id {
			s.results = append(s.results[:i], s.results[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Gelöscht"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Ergebnis nicht gefunden")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" {
		writeError(w, http.StatusBadRequest, "Bitte eine Domain angeben")
		return
	}
	username := s.currentUsername(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	// 同一ドメインの再分析は既存結果の更新として扱う
	for i, rec := range s.results {
		if rec.Domain == req.Domain {
			s.results[i].CreatedAt = time.Now().UTC().Format(time.RFC3339)
			writeJSON(w, http.StatusOK, map[string]any{
				"message": "Analyse aktualisiert",
				"result":  s.results[i],
			})
			return
		}
	}

	s.insertResultLocked(req.Domain, username)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Analyse abgeschlossen",
		"result":  s.results[len(s.results)-1],
	})
}

// insertResultLocked は分析結果を生成して保存する。要ロック。
func (s *Server) insertResultLocked(domain, username string) int {
	id := s.nextID
	s.nextID++
	s.results = append(s.results, resultRecord{
		ID:               id,
		Domain:           domain,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		Username:         username,
		ShortDescription: fmt.Sprintf("Kurzbeschreibung für %s", domain),
		LongDescription:  fmt.Sprintf("Ausführliche Beschreibung für %s", domain),
		Keywords:         "keyword1, keyword2",
		OpeningHours:     "Mo-Fr 9-18 Uhr",
		CompanyInfo:      fmt.Sprintf("Firmeninformationen zu %s", domain),
	})
	return id
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	prefix := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	domains := []string{}
	for _, rec := range s.results {
		if prefix != "" && strings.HasPrefix(rec.Domain, prefix) && !seen[rec.Domain] {
			seen[rec.Domain] = true
			domains = append(domains, rec.Domain)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": domains})
}

// --- 画像 ---

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserInput string `json:"user_input"`
		ImageType string `json:"image_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserInput == "" {
		writeError(w, http.StatusBadRequest, "Bitte eine Bildbeschreibung angeben")
		return
	}
	if req.ImageType != "header" && req.ImageType != "kachel" {
		writeError(w, http.StatusBadRequest, "Unbekannter Bildtyp")
		return
	}

	size := "1792x1024"
	if req.ImageType == "kachel" {
		size = "1024x768"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	img := imageRecord{
		ID:        id,
		ImageURL:  fmt.Sprintf("https://storage.example.de/images/%d.png", id),
		ImageType: req.ImageType,
		ImageSize: size,
		UserInput: req.UserInput,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.images = append(s.images, img)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"image":   img,
	})
}

func (s *Server) handleImageHistory(w http.ResponseWriter, r *http.Request) {
	page, perPage := paginationParams(r, 12)

	s.mu.Lock()
	defer s.mu.Unlock()

	// 新しい順に返す
	ordered := make([]imageRecord, 0, len(s.images))
	for i := len(s.images) - 1; i >= 0; i-- {
		ordered = append(ordered, s.images[i])
	}

	total := len(ordered)
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"images":       ordered[start:end],
		"total":        total,
		"pages":        pages,
		"current_page": page,
		"per_page":     perPage,
	})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, img := range s.images {
		if img.ID == id {
			s.images = append(s.images[:i], s.images[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Gelöscht"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Bild nicht gefunden")
}

// --- ユーザー ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// ページネーションなしの素の配列を返す
	writeJSON(w, http.StatusOK, s.users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Ungültiger Request-Body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Benutzername, E-Mail und Passwort sind erforderlich")
		return
	}
	if req.Role != "user" && req.Role != "admin" {
		writeError(w, http.StatusBadRequest, "Unbekannte Rolle")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == req.Username {
			writeError(w, http.StatusBadRequest, "Benutzername existiert bereits")
			return
		}
	}

	id := s.nextID
	s.nextID++
	user := userRecord{
		ID:       id,
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		Password: req.Password,
	}
	s.users = append(s.users, user)
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	var req struct {
		Username string  `json:"username"`
		Email    string  `json:"email"`
		Role     string  `json:"role"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Ungültiger Request-Body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == id {
			s.users[i].Username = req.Username
			s.users[i].Email = req.Email
			s.users[i].Role = req.Role
			// passwordキーが省略された場合は既存パスワードを維持する
			if req.Password != nil && *req.Password != "" {
				s.users[i].Password = *req.Password
			}
			writeJSON(w, http.StatusOK, s.users[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Benutzer nicht gefunden")
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Ungültige ID")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == id {
			if u.Role == "admin" && s.adminCountLocked() == 1 {
				writeError(w, http.StatusBadRequest, "Der letzte Administrator kann nicht gelöscht werden")
				return
			}
			s.users = append(s.users[:i], s.users[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Gelöscht"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Benutzer nicht gefunden")
}

// adminCountLocked は管理者の人数を返す。要ロック。
func (s *Server) adminCountLocked() int {
	count := 0
	for _, u := range s.users {
		if u.Role == "admin" {
			count++
		}
	}
	return count
}

// --- ヘルパー ---

// paginationParams はクエリからページ番号と件数を読み取る。
func paginationParams(r *http.Request, defaultPerPage int) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}

// writeJSON はJSON応答を書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError は統一フォーマット {error: string} のエラー応答を書き込む。
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// newToken は不透明トークンを生成する。
func newToken() string {
	return uuid.NewString()
}
