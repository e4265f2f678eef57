package util

import (
	"fmt"
	"net"
	"strconv"
)

// NotAvailable 无定义数值的显示文本
const NotAvailable = "n/a"

// FormatPercent 格式化百分比（输入已是百分数，如 10.8 -> +10.80%）
func FormatPercent(value *float64) string {
	if value == nil {
		return NotAvailable
	}
	sign := ""
	if *value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, *value)
}

// FormatNumber 格式化数值，整数不带小数
func FormatNumber(value *float64) string {
	if value == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

// FindAvailablePort 从 startPort 开始查找可监听的端口，最多尝试 limit 个
func FindAvailablePort(startPort, limit int) (int, error) {
	for p := startPort; p < startPort+limit; p++ {
		ln, err := net.Listen("tcp", ":"+strconv.Itoa(p))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in [%d, %d)", startPort, startPort+limit)
}
