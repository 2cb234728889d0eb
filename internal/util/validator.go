package util

import (
	"fmt"
	"strconv"
	"time"
)

// ValidateDate 验证日期格式（必须为 YYYY-MM-DD）
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("date is empty")
	}
	_, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	return nil
}

// ValidateKind 验证收支类型（只能是 expense 或 income）
func ValidateKind(kind string) error {
	if kind != "expense" && kind != "income" {
		return fmt.Errorf("invalid kind: %q", kind)
	}
	return nil
}

// ParseAmount 把金额字段解析为整数（十进制），失败返回错误
func ParseAmount(s string) (int64, error) {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %w", err)
	}
	return amount, nil
}
