package folio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	requiredStringFields = []string{"id", "title", "slug", "content", "excerpt", "author", "createdAt", "updatedAt"}
	optionalStringFields = []string{"featuredImage", "featuredImageAlt", "contentTag"}
)

// toValidationError flattens validator errors into a ValidationError.
func toValidationError(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.add(prefix + describeFieldError(fe))
	}
	return ve
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", field, fe.Param())
	case "slug":
		return fmt.Sprintf("%s %q is not a URL-safe slug", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %q", field, fe.Tag())
}

// decodeBackup checks that document is a JSON array of objects shaped like
// BlogPost and decodes it. Every problem found is reported, not only the first.
func decodeBackup(document []byte) ([]BlogPost, error) {
	ve := &ValidationError{}
	trimmed := bytes.TrimSpace(document)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		ve.add("document must be a JSON array of posts")
		return nil, ve
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		ve.add("document is not valid JSON: " + err.Error())
		return nil, ve
	}

	posts := make([]BlogPost, 0, len(raws))
	ids := make(map[string]int, len(raws))
	slugs := make(map[string]int, len(raws))
	for i, raw := range raws {
		prefix := fmt.Sprintf("post %d: ", i)
		if !checkShape(raw, prefix, ve) {
			continue
		}
		var p BlogPost
		if err := json.Unmarshal(raw, &p); err != nil {
			ve.add(prefix + err.Error())
			continue
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		if err := validate.Struct(p); err != nil {
			var inner *ValidationError
			if errors.As(toValidationError(prefix, err), &inner) {
				ve.Problems = append(ve.Problems, inner.Problems...)
			}
		}
		checkTimestamp(prefix, "createdAt", p.CreatedAt, ve)
		checkTimestamp(prefix, "updatedAt", p.UpdatedAt, ve)
		if first, ok := ids[p.ID]; ok && p.ID != "" {
			ve.add(fmt.Sprintf("%sid %q already used by post %d", prefix, p.ID, first))
		} else {
			ids[p.ID] = i
		}
		if first, ok := slugs[p.Slug]; ok && p.Slug != "" {
			ve.add(fmt.Sprintf("%sslug %q already used by post %d", prefix, p.Slug, first))
		} else {
			slugs[p.Slug] = i
		}
		posts = append(posts, p)
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}
	return posts, nil
}

// checkShape verifies presence and JSON types of the BlogPost fields in raw.
func checkShape(raw json.RawMessage, prefix string, ve *ValidationError) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		ve.add(prefix + "must be an object")
		return false
	}
	before := len(ve.Problems)
	for _, name := range requiredStringFields {
		v, ok := fields[name]
		switch {
		case !ok:
			ve.add(fmt.Sprintf("%smissing required field %q", prefix, name))
		case jsonKind(v) != '"':
			ve.add(fmt.Sprintf("%sfield %q must be a string", prefix, name))
		}
	}
	if v, ok := fields["published"]; !ok {
		ve.add(prefix + `missing required field "published"`)
	} else if k := jsonKind(v); k != 't' && k != 'f' {
		ve.add(prefix + `field "published" must be a boolean`)
	}
	if v, ok := fields["tags"]; !ok {
		ve.add(prefix + `missing required field "tags"`)
	} else {
		var tags []json.RawMessage
		if jsonKind(v) != '[' || json.Unmarshal(v, &tags) != nil {
			ve.add(prefix + `field "tags" must be an array of strings`)
		} else {
			for _, t := range tags {
				if jsonKind(t) != '"' {
					ve.add(prefix + `field "tags" must be an array of strings`)
					break
				}
			}
		}
	}
	for _, name := range optionalStringFields {
		if v, ok := fields[name]; ok && jsonKind(v) != '"' && jsonKind(v) != 'n' {
			ve.add(fmt.Sprintf("%sfield %q must be a string", prefix, name))
		}
	}
	return len(ve.Problems) == before
}

func checkTimestamp(prefix, field, value string, ve *ValidationError) {
	if value == "" {
		return
	}
	if _, err := time.Parse(time.RFC3339Nano, value); err != nil {
		ve.add(fmt.Sprintf("%sfield %q is not an ISO-8601 timestamp", prefix, field))
	}
}

// jsonKind returns the first significant byte of a JSON value: '"', '[',
// '{', 't', 'f', 'n' or a digit/sign for numbers.
func jsonKind(v json.RawMessage) byte {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0
	}
	return s[0]
}
