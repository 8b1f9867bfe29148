package models

import "time"

// CanonicalReference — именованный фрагмент справочного материала
// (story bible, правила мира и т.п.), которым заземляется каждый промпт
// генерации. Управляется сидером/админкой, для оркестратора read-only.
type CanonicalReference struct {
	ID        string    `db:"id" json:"id"`
	RefType   string    `db:"ref_type" json:"refType"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Version   string    `db:"version" json:"version"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
