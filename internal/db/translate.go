package db

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	insertOrIgnoreRe  = regexp.MustCompile(`(?i)\bINSERT\s+OR\s+IGNORE\s+INTO\b`)
	insertIntoRe      = regexp.MustCompile(`(?i)\bINSERT\s+INTO\b`)
	autoIncrementPKRe = regexp.MustCompile(`(?i)\bINTEGER\s+PRIMARY\s+KEY\s+AUTOINCREMENT\b`)
	autoIncrementRe   = regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`)
	serialRe          = regexp.MustCompile(`(?i)\b(?:BIG|SMALL)?SERIAL\b`)
	onConflictRe      = regexp.MustCompile(`(?i)\bON\s+CONFLICT\b`)
	returningRe       = regexp.MustCompile(`(?i)\bRETURNING\b`)
)

// Translate rewrites a neutral SQL statement into the dialect of the given
// backend and returns the rewritten text together with the number of
// positional placeholders it carries.
//
// The neutral dialect uses `?` positional placeholders and three directives:
// `INSERT OR IGNORE INTO` for insert-if-absent, `INTEGER PRIMARY KEY
// AUTOINCREMENT` for auto-incrementing identity columns, and `CREATE
// TABLE/INDEX IF NOT EXISTS` for idempotent schema creation. The embedded
// backend accepts the neutral text as-is; the client/server backend gets
// numbered `$1..$n` placeholders in appearance order, `INSERT INTO ... ON
// CONFLICT DO NOTHING`, and `SERIAL PRIMARY KEY`.
//
// Text that already carries dialect-specific markers is rejected with a
// translation error instead of being passed through, so untranslated SQL
// never reaches a driver. Translation is a pure text transform: the same
// input always yields the same output for a given backend.
func Translate(neutral string, kind Kind) (string, int, error) {
	if !Kinds.Contains(kind) {
		return "", 0, newError(ErrKindTranslation, fmt.Errorf("unknown backend kind: %q", kind.Value))
	}

	masked := maskLiterals(neutral)
	if err := checkNeutral(masked); err != nil {
		return "", 0, err
	}

	if kind == KindEmbedded {
		return neutral, strings.Count(masked, "?"), nil
	}

	translated := rewriteInsertOrIgnore(neutral)
	translated = rewriteAutoIncrement(translated)
	translated, count := numberPlaceholders(translated)
	return translated, count, nil
}

// checkNeutral rejects dialect-specific markers in neutral text. It operates
// on the masked statement so string literals never trip a check.
func checkNeutral(masked string) error {
	if strings.Contains(masked, "%s") {
		return newError(ErrKindTranslation, errors.New(
			"printf-style placeholders are not part of the neutral dialect, use ?",
		))
	}
	for i := 0; i+1 < len(masked); i++ {
		if masked[i] == '$' && masked[i+1] >= '0' && masked[i+1] <= '9' {
			return newError(ErrKindTranslation, errors.New(
				"numbered placeholders are not part of the neutral dialect, use ?",
			))
		}
	}
	if onConflictRe.MatchString(masked) {
		return newError(ErrKindTranslation, errors.New(
			"ON CONFLICT is dialect-specific, use INSERT OR IGNORE INTO",
		))
	}
	if serialRe.MatchString(masked) {
		return newError(ErrKindTranslation, errors.New(
			"SERIAL is dialect-specific, use INTEGER PRIMARY KEY AUTOINCREMENT",
		))
	}
	if len(autoIncrementRe.FindAllStringIndex(masked, -1)) !=
		len(autoIncrementPKRe.FindAllStringIndex(masked, -1)) {
		return newError(ErrKindTranslation, errors.New(
			"AUTOINCREMENT is only recognized as INTEGER PRIMARY KEY AUTOINCREMENT",
		))
	}
	return nil
}

// rewriteInsertOrIgnore turns the neutral insert-if-absent directive into
// the PostgreSQL form, keeping the columns and values clause unchanged. The
// ON CONFLICT clause lands before any RETURNING clause.
func rewriteInsertOrIgnore(sqlText string) string {
	masked := maskLiterals(sqlText)
	loc := insertOrIgnoreRe.FindStringIndex(masked)
	if loc == nil {
		return sqlText
	}
	sqlText = sqlText[:loc[0]] + "INSERT INTO" + sqlText[loc[1]:]

	masked = maskLiterals(sqlText)
	const clause = "ON CONFLICT DO NOTHING"
	if retLoc := returningRe.FindStringIndex(masked); retLoc != nil {
		return sqlText[:retLoc[0]] + clause + " " + sqlText[retLoc[0]:]
	}
	return strings.TrimRight(sqlText, " \t\r\n;") + " " + clause
}

// rewriteAutoIncrement replaces every neutral auto-increment column
// declaration with the PostgreSQL auto-incrementing integer type.
func rewriteAutoIncrement(sqlText string) string {
	masked := maskLiterals(sqlText)
	locs := autoIncrementPKRe.FindAllStringIndex(masked, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		sqlText = sqlText[:locs[i][0]] + "SERIAL PRIMARY KEY" + sqlText[locs[i][1]:]
	}
	return sqlText
}

// numberPlaceholders rewrites every `?` placeholder outside literals into
// `$n`, 1-indexed in appearance order, and returns the placeholder count.
func numberPlaceholders(sqlText string) (string, int) {
	masked := maskLiterals(sqlText)

	var b strings.Builder
	b.Grow(len(sqlText))
	count := 0
	for i := 0; i < len(sqlText); i++ {
		if masked[i] == '?' {
			count++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(count))
			continue
		}
		b.WriteByte(sqlText[i])
	}
	return b.String(), count
}

// maskLiterals returns a copy of the statement where the contents of string
// literals, quoted identifiers, and comments are replaced with spaces. The
// result has the same length as the input, so positions found in the mask
// apply directly to the original text.
func maskLiterals(sqlText string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	masked := []byte(sqlText)
	state := stateNormal

	for i := 0; i < len(masked); i++ {
		c := masked[i]

		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingleQuote
				masked[i] = ' '
			case c == '"':
				state = stateDoubleQuote
				masked[i] = ' '
			case c == '-' && i+1 < len(masked) && masked[i+1] == '-':
				state = stateLineComment
				masked[i] = ' '
			case c == '/' && i+1 < len(masked) && masked[i+1] == '*':
				state = stateBlockComment
				masked[i] = ' '
			}
		case stateSingleQuote:
			// '' escapes a quote inside the literal.
			if c == '\'' {
				if i+1 < len(masked) && masked[i+1] == '\'' {
					masked[i] = ' '
					masked[i+1] = ' '
					i++
					continue
				}
				state = stateNormal
			}
			masked[i] = ' '
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
			}
			masked[i] = ' '
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				continue
			}
			masked[i] = ' '
		case stateBlockComment:
			if c == '*' && i+1 < len(masked) && masked[i+1] == '/' {
				masked[i] = ' '
				masked[i+1] = ' '
				i++
				state = stateNormal
				continue
			}
			masked[i] = ' '
		}
	}

	return string(masked)
}
