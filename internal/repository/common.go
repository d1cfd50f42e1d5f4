// Package repository 提供可调参数表的 GORM 仓储
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm/clause"
)

// ErrConfigNotFound 启用/停用的配置项不存在
var ErrConfigNotFound = errors.New("tunable config not found")

// upsertClause 按身份列冲突时替换全部非身份列 (created_at 保留首次写入值)
func upsertClause(identity []string, updates []string) clause.OnConflict {
	cols := make([]clause.Column, 0, len(identity))
	for _, name := range identity {
		cols = append(cols, clause.Column{Name: name})
	}
	return clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.AssignmentColumns(append(updates, "updated_at")),
	}
}

// isConnectionError 粗略判断是否为连接类错误
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "database is closed") ||
		strings.Contains(errStr, "sql: database is closed")
}

// IsConnectionError 判断是否为数据库不可达类错误
func IsConnectionError(err error) bool {
	return isConnectionError(err)
}
