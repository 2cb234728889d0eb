package util

import "strings"

// CSVHeader 是导入/导出共用的列约定，列序和列数不能改动
const CSVHeader = "ReceiptID,Date,Kind,ReceiptMemo,CategoryName,Amount,LineItemMemo"

// UTF8BOM 让 Excel 等工具正确识别 UTF-8 编码
const UTF8BOM = "\xEF\xBB\xBF"

// DecodeCSV 宽松地解析 CSV 文本，永不报错，能解析多少行就返回多少行
// 引号内的 "" 表示一个字面引号；\r\n、\r、\n 都当作换行
// 末尾没有换行的残行（包括未闭合引号里的内容）也保留为最后一行
func DecodeCSV(text string) [][]string {
	var rows [][]string
	var row []string
	var cell strings.Builder
	inQuotes := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if inQuotes {
			if ch == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					cell.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				cell.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case ',':
			row = append(row, cell.String())
			cell.Reset()
		case '\n', '\r':
			row = append(row, cell.String())
			cell.Reset()
			rows = append(rows, row)
			row = nil
			if ch == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		default:
			cell.WriteByte(ch)
		}
	}

	if cell.Len() > 0 || len(row) > 0 {
		row = append(row, cell.String())
		rows = append(rows, row)
	}
	return rows
}

// EncodeCSVField 仅在字段包含逗号、引号或换行时加引号转义
func EncodeCSVField(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// EncodeCSV 把行数据编码为带表头的 CSV 文本（不含 BOM）
func EncodeCSV(rows [][]string) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	for _, row := range rows {
		b.WriteByte('\n')
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(EncodeCSVField(field))
		}
	}
	return b.String()
}
