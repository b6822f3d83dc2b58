// Package domain 融资服务的领域模型
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("resource not found")
	// ErrInsufficientFunds 可提金额不足
	ErrInsufficientFunds = errors.New("insufficient available balance")
	// ErrConcurrentUpdate 乐观锁冲突，同一余额被并发修改
	ErrConcurrentUpdate = errors.New("optimistic lock failed: record modified by another transaction")
	// ErrConflict 重试耗尽后仍然冲突
	ErrConflict = errors.New("concurrent update conflict, please retry")
)

// StateError 状态机非法迁移错误
type StateError struct {
	Entity  string
	ID      string
	Current string
	Action  string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s in status %s", e.Entity, e.ID, e.Action, e.Current)
}

// AuthorizationError 操作者无权执行该操作
type AuthorizationError struct {
	UserID string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s is not authorized to %s", e.UserID, e.Action)
}

// ValidationErrors 字段级校验错误集合，一次校验收集所有违规项
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add 记录一个字段的首个违规项，已存在则忽略
func (v ValidationErrors) Add(field, message string) {
	if _, ok := v[field]; !ok {
		v[field] = message
	}
}

// HasErrors 是否存在违规项
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}
