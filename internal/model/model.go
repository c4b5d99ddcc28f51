package model

// All lists every persisted model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Role{},
		&Permission{},
		&User{},
		&Document{},
		&DocumentChunk{},
		&DatabaseConnection{},
		&QueryHistory{},
		&ChatHistory{},
		&Message{},
	}
}
