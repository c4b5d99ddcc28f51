package app

import "agentic-rag/internal/pkg/apperr"

var (
	ErrInvalidInput = apperr.Validation("invalid input")

	ErrMobileRequired     = apperr.Validation("mobile number is required")
	ErrPasswordTooShort   = apperr.Validation("password must be at least 8 characters")
	ErrMobileExists       = apperr.Conflict("mobile number already registered")
	ErrInvalidCredential  = apperr.Authentication("incorrect mobile number or password")
	ErrInactiveUser       = apperr.Authentication("inactive user")
	ErrNotAdmin           = apperr.Authorization("not authorized to access admin resources")
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrCannotDeleteSelf   = apperr.Validation("cannot delete own account")
	ErrRoleNotFound       = apperr.NotFound("role not found")
	ErrRoleExists         = apperr.Conflict("role name already exists")
	ErrPermissionNotFound = apperr.NotFound("permission not found")
	ErrPermissionExists   = apperr.Conflict("permission name already exists")

	ErrDocumentNotFound    = apperr.NotFound("document not found")
	ErrUnsupportedFileType = apperr.Validation("unsupported file type")
	ErrFileTooLarge        = apperr.Validation("file exceeds the upload size limit")
	ErrEmptyDocument       = apperr.Validation("document contains no extractable text")
	ErrPromptRequired      = apperr.Validation("prompt is required")
	ErrDocumentIDsRequired = apperr.Validation("document_ids is required")

	ErrConnectionNotFound   = apperr.NotFound("database connection not found")
	ErrUnsupportedDBType    = apperr.Validation("unsupported database type")
	ErrConnectionString     = apperr.Validation("connection string does not match db_type")
	ErrQuestionRequired     = apperr.Validation("question is required")
	ErrTableNotFound        = apperr.NotFound("table not found")
	ErrUnsafeQuery          = apperr.Unprocessable("generated query was rejected by the safety gate")
	ErrTargetUnavailable    = apperr.Upstream("target database unavailable", nil)
	ErrEmbeddingFailed      = apperr.Upstream("embedding service failed", nil)
	ErrCompletionFailed     = apperr.Upstream("completion service failed", nil)
	ErrChatHistoryNotFound  = apperr.NotFound("chat history not found")
	ErrInvalidAgentType     = apperr.Validation("agent_type must be SQL_AGENT or DOCUMENT_AGENT")
	ErrMessageEmpty         = apperr.Validation("message content is empty")
	ErrInvalidMessageRole   = apperr.Validation("role must be user, assistant or system")
	ErrChatHistoryAgentType = apperr.Validation("chat history belongs to another agent")
)
