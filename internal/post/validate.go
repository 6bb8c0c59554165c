package post

import (
	"encoding/json"
	"fmt"

	"github.com/ime-hub/postscrape/internal/deadletter"
)

const validateDumpLimit = 200

// Validate checks a document against the schema invariants. It returns nil
// when the document passes and a Validate failure naming the first violated
// check otherwise.
func Validate(doc *Doc) *deadletter.Failure {
	required := []struct {
		name  string
		value string
	}{
		{"id", doc.ID},
		{"type", doc.Type},
		{"title", doc.Title},
		{"date_published", doc.DatePublished},
		{"last_checked_at", doc.LastCheckedAt},
		{"source_name", doc.SourceName},
		{"source_url", doc.SourceURL},
	}
	for _, field := range required {
		if isBlank(field.value) {
			return deadletter.New(deadletter.KindValidate,
				fmt.Sprintf("필수 필드 누락: %s", field.name), dump(doc))
		}
	}
	if doc.Payload == nil {
		return deadletter.New(deadletter.KindValidate, "필수 필드 누락: payload", dump(doc))
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"date_published", doc.DatePublished},
		{"last_checked_at", doc.LastCheckedAt},
	} {
		if !IsISODate(field.value) {
			return deadletter.New(deadletter.KindValidate,
				fmt.Sprintf("날짜 형식 오류: %s", field.name), field.value)
		}
	}
	if doc.Deadline != "" && !IsISODate(doc.Deadline) {
		return deadletter.New(deadletter.KindValidate, "deadline 날짜 형식 오류", doc.Deadline)
	}

	if !httpsRe.MatchString(doc.SourceURL) {
		return deadletter.New(deadletter.KindValidate, "source_url은 https여야 합니다.", doc.SourceURL)
	}

	if !ValidType(doc.Type) {
		return deadletter.New(deadletter.KindValidate, "type 값이 올바르지 않습니다.", doc.Type)
	}

	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// dump renders a truncated JSON view of the document for the log message.
func dump(doc *Doc) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	if len(data) > validateDumpLimit {
		data = data[:validateDumpLimit]
	}
	return string(data)
}
