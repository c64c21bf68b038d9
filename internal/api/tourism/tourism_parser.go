package tourism

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

var (
	errNoJSON    = errors.New("no JSON object found in model output")
	flatObjectRe = regexp.MustCompile(`\{[^{}]+\}`)
)

// cleanJSONResponse drops markdown fence lines from a model reply.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	if !strings.HasPrefix(response, "```") {
		return response
	}
	lines := strings.Split(response, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// decodeObject parses the reply as a JSON object. If the whole text is not
// one, the first flat {...} block found in it is tried instead.
func decodeObject(response string, dst interface{}) error {
	cleaned := cleanJSONResponse(response)
	if strings.HasPrefix(cleaned, "{") {
		if err := json.Unmarshal([]byte(cleaned), dst); err == nil {
			return nil
		}
	}

	match := flatObjectRe.FindString(cleaned)
	if match == "" {
		return errNoJSON
	}
	if err := json.Unmarshal([]byte(match), dst); err != nil {
		return fmt.Errorf("failed to decode extracted JSON: %w", err)
	}
	return nil
}

func parseIntent(response string) (types.Intent, error) {
	var intent types.Intent
	if err := decodeObject(response, &intent); err != nil {
		return types.Intent{}, err
	}
	return intent, nil
}

// parsePlan requires at least one non-blank step.
func parsePlan(response string) (types.TravelPlan, error) {
	var plan types.TravelPlan
	if err := decodeObject(response, &plan); err != nil {
		return types.TravelPlan{}, err
	}

	steps := plan.ExecutionPlan[:0]
	for _, s := range plan.ExecutionPlan {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return types.TravelPlan{}, errors.New("execution plan is empty")
	}
	plan.ExecutionPlan = steps
	plan.TravelTips = strings.TrimSpace(plan.TravelTips)
	return plan, nil
}

// intentLocation treats blank and placeholder values as no location.
func intentLocation(intent types.Intent) string {
	if intent.Location == nil {
		return ""
	}
	loc := strings.TrimSpace(*intent.Location)
	switch strings.ToLower(loc) {
	case "", "null", "none", "unknown", "n/a":
		return ""
	}
	return loc
}
