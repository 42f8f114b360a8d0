package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// VisitorDraftKey returns the cache key holding a visitor's in-progress answers
// for one exam (a Redis hash of question id → value).
func (r *CacheKeyStruct) VisitorDraftKey(examID, email string) string {
	return fmt.Sprintf("draft:%s:%s", examID, email)
}

// VisitorIdentityKey returns the cache key for a visitor's identity record.
// The record is shared across exams.
func (r *CacheKeyStruct) VisitorIdentityKey(email string) string {
	return fmt.Sprintf("identity:%s", email)
}

// VisitorExamTokenKey returns the cache key for a visitor's pre-issued
// per-exam signature token.
func (r *CacheKeyStruct) VisitorExamTokenKey(examID, email string) string {
	return fmt.Sprintf("examtoken:%s:%s", examID, email)
}

var CacheKey = NewCacheKeyStruct()
