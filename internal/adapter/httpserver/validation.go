package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID checks a path or query identifier.
func ValidateID(field, id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, field)
	case len(id) > 100:
		return fmt.Errorf("%w: %s is too long (max 100 characters)", domain.ErrInvalidArgument, field)
	case !validID.MatchString(id):
		return fmt.Errorf("%w: %s contains invalid characters", domain.ErrInvalidArgument, field)
	}
	return nil
}

// decodeJSON reads a capped JSON body into dst and runs struct validation.
// The returned details map field names to the failed validation tag.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return nil, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return verrs, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return nil, nil
}
