package pgfleet

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net"
	"net/netip"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pgfleet/pgfleet/internal/guard"
)

// disallowedQueryMessage is the fixed outcome error for rejected queries.
// The specific rule that fired is logged, never surfaced to the caller.
const disallowedQueryMessage = "query contains disallowed operations"

// ExecuteQuery runs one read-only SQL statement against the named database
// and returns a structured outcome. The statement is checked against the
// read-only gate first; rejected queries and unknown database names fail
// without any connection attempt. ExecutionTime covers connection
// establishment through row materialization, and on failure reports the
// elapsed time up to the failure point.
func (f *Fleet) ExecuteQuery(ctx context.Context, query, database string) *QueryResult {
	if err := guard.Check(query); err != nil {
		f.logger.Warn().
			Err(err).
			Str("database", database).
			Str("sql", logSQL(query)).
			Msg("query rejected")
		return &QueryResult{Error: disallowedQueryMessage, Database: database}
	}

	if _, ok := f.registry.Lookup(database); !ok {
		f.logger.Warn().Str("database", database).Msg("query against unknown database")
		return &QueryResult{Error: notFoundMessage(database), Database: database}
	}

	startTime := time.Now()

	conn, err := f.registry.Resolve(ctx, database)
	if err != nil {
		return f.queryError(err, database, startTime)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return f.queryError(err, database, startTime)
	}
	data, err := collectRows(rows)
	if err != nil {
		return f.queryError(err, database, startTime)
	}
	elapsed := time.Since(startTime)

	f.logger.Info().
		Str("database", database).
		Str("sql", logSQL(query)).
		Str("fingerprint", sqlFingerprint(query)).
		Dur("duration", elapsed).
		Int("row_count", len(data)).
		Msg("query executed")

	return &QueryResult{
		Success:       true,
		Data:          data,
		RowsCount:     len(data),
		ExecutionTime: elapsed.Seconds(),
		Database:      database,
	}
}

// queryError converts err into a failed QueryResult carrying the elapsed
// time up to the failure point.
func (f *Fleet) queryError(err error, database string, start time.Time) *QueryResult {
	elapsed := time.Since(start)
	f.logger.Error().
		Err(err).
		Str("database", database).
		Dur("duration", elapsed).
		Msg("query failed")
	return &QueryResult{
		Error:         err.Error(),
		Database:      database,
		ExecutionTime: elapsed.Seconds(),
	}
}

// collectRows drains rows into ordered column-name keyed maps. The result
// is non-nil even when the statement yields no rows.
func collectRows(rows pgx.Rows) ([]map[string]interface{}, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	data := make([]map[string]interface{}, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[fd.Name] = normalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// normalizeValue converts a pgx-returned value into a JSON-friendly form.
// Timestamps become RFC 3339 strings, driver-specific pgtype values become
// their usual PostgreSQL text renderings, and binary data is base64.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		return normalizeFloat(float64(val), val)
	case float64:
		return normalizeFloat(val, val)
	case netip.Prefix:
		return val.String()
	case net.HardwareAddr:
		return val.String()
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		return formatMicroseconds(val.Microseconds)
	case pgtype.Interval:
		if !val.Valid {
			return nil
		}
		return formatInterval(val)
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.NaN {
			return "NaN"
		}
		if val.InfinityModifier == pgtype.Infinity {
			return "Infinity"
		}
		if val.InfinityModifier == pgtype.NegativeInfinity {
			return "-Infinity"
		}
		b, err := val.MarshalJSON()
		if err != nil {
			return nil
		}
		return string(b)
	case pgtype.Range[interface{}]:
		if !val.Valid {
			return nil
		}
		return formatRange(val)
	case pgtype.Point:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("(%g,%g)", val.P.X, val.P.Y)
	case pgtype.Line:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("{%g,%g,%g}", val.A, val.B, val.C)
	case pgtype.Lseg:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("[(%g,%g),(%g,%g)]", val.P[0].X, val.P[0].Y, val.P[1].X, val.P[1].Y)
	case pgtype.Box:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("(%g,%g),(%g,%g)", val.P[0].X, val.P[0].Y, val.P[1].X, val.P[1].Y)
	case pgtype.Path:
		if !val.Valid {
			return nil
		}
		joined := joinPoints(val.P)
		if val.Closed {
			return "(" + joined + ")"
		}
		return "[" + joined + "]"
	case pgtype.Polygon:
		if !val.Valid {
			return nil
		}
		return "(" + joinPoints(val.P) + ")"
	case pgtype.Circle:
		if !val.Valid {
			return nil
		}
		return fmt.Sprintf("<(%g,%g),%g>", val.P.X, val.P.Y, val.R)
	case pgtype.Bits:
		if !val.Valid {
			return nil
		}
		return bitString(val)
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []byte:
		// bytea, base64 encoded
		return base64.StdEncoding.EncodeToString(val)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, item := range val {
			result[k] = normalizeValue(item)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, item := range val {
			result[i] = normalizeValue(item)
		}
		return result
	default:
		return val
	}
}

// normalizeFloat replaces NaN and infinities with their PostgreSQL text
// forms, since JSON cannot represent them.
func normalizeFloat(f float64, orig interface{}) interface{} {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return orig
}

// formatMicroseconds renders a time-of-day microsecond count as HH:MM:SS
// with a fractional part only when non-zero.
func formatMicroseconds(us int64) string {
	hours := us / 3_600_000_000
	us -= hours * 3_600_000_000
	minutes := us / 60_000_000
	us -= minutes * 60_000_000
	seconds := us / 1_000_000
	us -= seconds * 1_000_000
	if us > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, us)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// formatInterval renders an interval in PostgreSQL's verbose style.
func formatInterval(val pgtype.Interval) string {
	parts := []string{}
	if val.Months != 0 {
		years := val.Months / 12
		months := val.Months % 12
		if years != 0 {
			parts = append(parts, fmt.Sprintf("%d year(s)", years))
		}
		if months != 0 {
			parts = append(parts, fmt.Sprintf("%d mon(s)", months))
		}
	}
	if val.Days != 0 {
		parts = append(parts, fmt.Sprintf("%d day(s)", val.Days))
	}
	if val.Microseconds != 0 {
		dur := time.Duration(val.Microseconds) * time.Microsecond
		parts = append(parts, dur.String())
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " ")
}

// formatRange renders a range value in PostgreSQL's bracket notation.
func formatRange(val pgtype.Range[interface{}]) string {
	if val.LowerType == pgtype.Empty {
		return "empty"
	}
	var sb strings.Builder
	if val.LowerType == pgtype.Inclusive {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('(')
	}
	if val.LowerType != pgtype.Unbounded {
		sb.WriteString(fmt.Sprintf("%v", normalizeValue(val.Lower)))
	}
	sb.WriteByte(',')
	if val.UpperType != pgtype.Unbounded {
		sb.WriteString(fmt.Sprintf("%v", normalizeValue(val.Upper)))
	}
	if val.UpperType == pgtype.Inclusive {
		sb.WriteByte(']')
	} else {
		sb.WriteByte(')')
	}
	return sb.String()
}

// joinPoints renders a point list as (x,y),(x,y),...
func joinPoints(points []pgtype.Vec2) string {
	rendered := make([]string, len(points))
	for i, p := range points {
		rendered[i] = fmt.Sprintf("(%g,%g)", p.X, p.Y)
	}
	return strings.Join(rendered, ",")
}

// bitString renders a bit value as a string of '0' and '1' characters.
func bitString(val pgtype.Bits) string {
	result := make([]byte, val.Len)
	for i := int32(0); i < val.Len; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		if val.Bytes[byteIdx]&(1<<uint(bitIdx)) != 0 {
			result[i] = '1'
		} else {
			result[i] = '0'
		}
	}
	return string(result)
}

// logSQL renders a statement for logging. Literals are normalized away so
// logged SQL does not leak row values, and long statements are truncated.
func logSQL(sql string) string {
	normalized, err := pg_query.Normalize(sql)
	if err != nil {
		normalized = sql
	}
	return truncateForLog(normalized, 200)
}

// sqlFingerprint returns pg_query's statement fingerprint, which is stable
// across literal values. Empty for statements the parser cannot read.
func sqlFingerprint(sql string) string {
	fp, err := pg_query.Fingerprint(sql)
	if err != nil {
		return ""
	}
	return fp
}

// truncateForLog truncates a string for log output without splitting a
// multi-byte rune.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
