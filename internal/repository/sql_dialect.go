package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// metadataSearchKeys 订单 metadata 中参与关键字搜索的键
var metadataSearchKeys = []string{"table_label", "address", "notes"}

// sqlDialect 只区分 postgres 与 sqlite 两种写法
type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

func dialectOf(db *gorm.DB) sqlDialect {
	if db == nil || db.Dialector == nil {
		return dialectSQLite
	}
	switch strings.ToLower(strings.TrimSpace(db.Dialector.Name())) {
	case "postgres", "postgresql":
		return dialectPostgres
	default:
		return dialectSQLite
	}
}

// likeOperator postgres 下大小写不敏感
func (d sqlDialect) likeOperator() string {
	if d == dialectPostgres {
		return "ILIKE"
	}
	return "LIKE"
}

// jsonText 取 JSON 列中某个键的文本值
func (d sqlDialect) jsonText(column, key string) string {
	if d == dialectPostgres {
		return fmt.Sprintf("(%s::jsonb ->> '%s')", column, key)
	}
	return fmt.Sprintf("json_extract(%s, '$.\"%s\"')", column, key)
}

// keywordCondition 普通列与 JSON 列各键 OR 连接，共用命名参数 @kw
func (d sqlDialect) keywordCondition(plainColumns, jsonColumns []string) string {
	op := d.likeOperator()
	var parts []string
	for _, column := range plainColumns {
		if column = strings.TrimSpace(column); column != "" {
			parts = append(parts, column+" "+op+" @kw")
		}
	}
	for _, column := range jsonColumns {
		if column = strings.TrimSpace(column); column == "" {
			continue
		}
		for _, key := range metadataSearchKeys {
			parts = append(parts, d.jsonText(column, key)+" "+op+" @kw")
		}
	}
	return strings.Join(parts, " OR ")
}

// keywordScope 关键字模糊匹配 scope，关键字为空时不加条件
func keywordScope(keyword string, plainColumns, jsonColumns []string) func(*gorm.DB) *gorm.DB {
	keyword = strings.TrimSpace(keyword)
	return func(db *gorm.DB) *gorm.DB {
		if keyword == "" {
			return db
		}
		condition := dialectOf(db).keywordCondition(plainColumns, jsonColumns)
		if condition == "" {
			return db
		}
		return db.Where("("+condition+")", sql.Named("kw", "%"+keyword+"%"))
	}
}
