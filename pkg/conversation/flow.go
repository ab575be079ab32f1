package conversation

import (
	"strings"

	"GrowthFlow/pkg/api"
)

var flowNames = map[api.Flow]string{
	api.FlowPresentation: "General Info",
	api.FlowRoadmap:      "Build a Roadmap",
	api.FlowDynamicCV:    "Dynamic CV",
}

// Flows lists the selectable flows in menu order.
func Flows() []api.Flow {
	return []api.Flow{api.FlowPresentation, api.FlowRoadmap, api.FlowDynamicCV}
}

// FlowName is the display name of a flow; unknown ids read as General Info.
func FlowName(f api.Flow) string {
	if name, ok := flowNames[f]; ok {
		return name
	}
	return flowNames[api.FlowPresentation]
}

// ParseFlow accepts a flow id in any case, or its display name.
func ParseFlow(s string) (api.Flow, bool) {
	s = strings.TrimSpace(s)
	if f := api.Flow(strings.ToUpper(s)); f.Known() {
		return f, true
	}
	for f, name := range flowNames {
		if strings.EqualFold(name, s) {
			return f, true
		}
	}
	return "", false
}
