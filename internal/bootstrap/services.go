package bootstrap

import (
	"time"

	"gorm.io/gorm"

	"agentic-rag/internal/app"
	"agentic-rag/internal/repository"
	"agentic-rag/internal/sqlagent"
)

// Services holds every application service behind the HTTP layer.
type Services struct {
	Auth      *app.AuthService
	Authz     *app.AuthzService
	Admin     *app.AdminService
	Documents *app.DocumentService
	RAG       *app.RAGService
	SQLAgent  *app.SQLAgentService
	Chat      *app.ChatService
}

// ServiceDeps are the collaborators injected into the services. Caches and
// publishers are optional and must be left as nil interfaces when absent.
type ServiceDeps struct {
	Embedder         app.Embedder
	Completer        app.Completer
	SQLCompleter     app.Completer
	Extractor        app.TextExtractor
	Targets          app.TargetOpener
	HistoryCache     app.HistoryCache
	SchemaCache      app.SchemaCache
	MessagePublisher app.Publisher
	IngestPublisher  app.Publisher
	Documents        app.DocumentOptions
	Guard            *sqlagent.Guard
	JWTSecret        string
	JWTExpiration    time.Duration
}

func NewServices(db *gorm.DB, deps ServiceDeps) *Services {
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	historyRepo := repository.NewChatHistoryRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	connRepo := repository.NewDatabaseConnectionRepository(db)
	queryRepo := repository.NewQueryHistoryRepository(db)

	if deps.SQLCompleter == nil {
		deps.SQLCompleter = deps.Completer
	}
	if deps.Guard == nil {
		deps.Guard = sqlagent.NewGuard(true)
	}

	chat := app.NewChatService(historyRepo, messageRepo, deps.MessagePublisher, deps.HistoryCache)
	return &Services{
		Auth:      app.NewAuthService(userRepo, roleRepo, deps.JWTSecret, deps.JWTExpiration),
		Authz:     app.NewAuthzService(userRepo, roleRepo, permRepo),
		Admin:     app.NewAdminService(userRepo, roleRepo, permRepo, docRepo, connRepo, deps.Targets, deps.SchemaCache),
		Documents: app.NewDocumentService(docRepo, deps.Extractor, deps.Embedder, deps.IngestPublisher, deps.Documents),
		RAG:       app.NewRAGService(docRepo, chunkRepo, deps.Embedder, deps.Completer, chat),
		SQLAgent:  app.NewSQLAgentService(connRepo, queryRepo, deps.Targets, deps.SchemaCache, deps.SQLCompleter, deps.Guard, chat),
		Chat:      chat,
	}
}
