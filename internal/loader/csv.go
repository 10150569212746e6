package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"order-listing/internal/order"
)

// 精度表列名。
const (
	ColumnPricePrecision    = "Price Precision"
	ColumnQuantityPrecision = "Quantity Precision"
)

// Tables 为一次运行加载的两张输入表。
type Tables struct {
	Orders    *order.OrderSet
	Precision *order.PrecisionTable
}

// LoadTables 并发读取订单表与精度表。
func LoadTables(ctx context.Context, ordersPath, precisionPath string) (Tables, error) {
	var tables Tables

	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		set, err := LoadOrders(ordersPath)
		if err != nil {
			return err
		}
		tables.Orders = set
		return nil
	})

	group.Go(func() error {
		table, err := LoadPrecision(precisionPath)
		if err != nil {
			return err
		}
		tables.Precision = table
		return nil
	})

	if err := group.Wait(); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

// LoadOrders 读取订单 CSV 文件。
func LoadOrders(path string) (*order.OrderSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: 打开订单文件失败: %w", err)
	}
	defer f.Close()

	return ReadOrders(f)
}

// ReadOrders 解析订单表。缺失的必需列不在此处报错，而是保留在 Columns 中交由校验器处理；
// 多余的列（如 Value）被忽略。
func ReadOrders(r io.Reader) (*order.OrderSet, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: 读取订单表失败: %w", err)
	}

	idx := indexColumns(header)
	set := &order.OrderSet{
		Columns: header,
		Orders:  make([]order.Order, 0, len(rows)),
	}

	for i, row := range rows {
		var o order.Order
		o.Pair = field(row, idx, order.ColumnPair)
		o.Direction = order.Direction(field(row, idx, order.ColumnDirection))
		o.Account = normalizeAccount(field(row, idx, order.ColumnAccount))

		if o.Price, err = parseDecimal(row, idx, order.ColumnPrice); err != nil {
			return nil, fmt.Errorf("loader: 订单表第 %d 行: %w", i, err)
		}
		if o.Quantity, err = parseDecimal(row, idx, order.ColumnQuantity); err != nil {
			return nil, fmt.Errorf("loader: 订单表第 %d 行: %w", i, err)
		}

		set.Orders = append(set.Orders, o)
	}

	return set, nil
}

// LoadPrecision 读取精度 CSV 文件。
func LoadPrecision(path string) (*order.PrecisionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: 打开精度文件失败: %w", err)
	}
	defer f.Close()

	return ReadPrecision(f)
}

// ReadPrecision 解析精度表，三列均为必需。
func ReadPrecision(r io.Reader) (*order.PrecisionTable, error) {
	header, rows, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: 读取精度表失败: %w", err)
	}

	idx := indexColumns(header)
	for _, col := range []string{order.ColumnAccount, ColumnPricePrecision, ColumnQuantityPrecision} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("loader: 精度表缺少列 %q", col)
		}
	}

	rules := make([]order.PrecisionRule, 0, len(rows))
	for i, row := range rows {
		pricePrecision, err := parseInt32(field(row, idx, ColumnPricePrecision))
		if err != nil {
			return nil, fmt.Errorf("loader: 精度表第 %d 行 %s: %w", i, ColumnPricePrecision, err)
		}
		quantityPrecision, err := parseInt32(field(row, idx, ColumnQuantityPrecision))
		if err != nil {
			return nil, fmt.Errorf("loader: 精度表第 %d 行 %s: %w", i, ColumnQuantityPrecision, err)
		}
		rules = append(rules, order.PrecisionRule{
			Account:           normalizeAccount(field(row, idx, order.ColumnAccount)),
			PricePrecision:    pricePrecision,
			QuantityPrecision: quantityPrecision,
		})
	}

	return order.NewPrecisionTable(rules...)
}

func readAll(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("文件为空")
		}
		return nil, nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if blank(record) {
			continue
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}
	return idx
}

func field(row []string, idx map[string]int, column string) string {
	i, ok := idx[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseDecimal(row []string, idx map[string]int, column string) (decimal.Decimal, error) {
	if _, ok := idx[column]; !ok {
		return decimal.Zero, nil
	}
	raw := field(row, idx, column)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s 无法解析为数值 %q", column, raw)
	}
	return value, nil
}

func parseInt32(raw string) (int32, error) {
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// normalizeAccount 去除整数账户导出时常见的 ".0" 后缀。
func normalizeAccount(raw string) string {
	if trimmed, ok := strings.CutSuffix(raw, ".0"); ok {
		if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return trimmed
		}
	}
	return raw
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
