package util

import (
	"testing"
)

// TestValidateDate_Valid 测试有效日期
func TestValidateDate_Valid(t *testing.T) {
	testCases := []string{
		"2024-01-01",
		"2024-12-31",
		"2024-02-29", // 闰年
		"2026-06-15",
	}

	for _, date := range testCases {
		err := ValidateDate(date)
		if err != nil {
			t.Errorf("ValidateDate(%q) error = %v, want nil", date, err)
		}
	}
}

// TestValidateDate_InvalidFormat 测试无效格式（异常）
func TestValidateDate_InvalidFormat(t *testing.T) {
	testCases := []string{
		"",
		"2024/01/01",
		"01-01-2024",
		"2024-1-1",
		"not-a-date",
		"2024-13-01", // 月份错误
		"2024-01-32", // 日期错误
		"2023-02-29", // 非闰年
	}

	for _, date := range testCases {
		err := ValidateDate(date)
		if err == nil {
			t.Errorf("ValidateDate(%q) error = nil, want error", date)
		}
	}
}

// TestValidateKind_Valid 测试有效收支类型
func TestValidateKind_Valid(t *testing.T) {
	for _, kind := range []string{"expense", "income"} {
		if err := ValidateKind(kind); err != nil {
			t.Errorf("ValidateKind(%q) error = %v, want nil", kind, err)
		}
	}
}

// TestValidateKind_Invalid 测试无效收支类型（异常）
func TestValidateKind_Invalid(t *testing.T) {
	testCases := []string{"", "transfer", "Expense", "INCOME", "支出"}

	for _, kind := range testCases {
		if err := ValidateKind(kind); err == nil {
			t.Errorf("ValidateKind(%q) error = nil, want error", kind)
		}
	}
}

// TestParseAmount_Valid 测试有效金额
func TestParseAmount_Valid(t *testing.T) {
	testCases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"800", 800},
		{"-500", -500},
		{"210000", 210000},
	}

	for _, tc := range testCases {
		got, err := ParseAmount(tc.in)
		if err != nil {
			t.Errorf("ParseAmount(%q) error = %v, want nil", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

// TestParseAmount_Invalid 测试无效金额（异常）
func TestParseAmount_Invalid(t *testing.T) {
	testCases := []string{"", "abc", "12.5", "12abc", "１２３"}

	for _, s := range testCases {
		if _, err := ParseAmount(s); err == nil {
			t.Errorf("ParseAmount(%q) error = nil, want error", s)
		}
	}
}
