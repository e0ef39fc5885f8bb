// Package dashboard describes the S&P 500 stock dashboard as the suites see
// it: where its elements live, what they should say, and the scripted checks
// run against any Driver.
package dashboard

import (
	"fmt"
	"strings"
)

// Selectors for the Streamlit-rendered dashboard.
const (
	SelectorDashboardHeader = `[id="stock-dashboard-s-p500"]`
	SelectorIndustryHeader  = `[id="industry-data"]`
	SelectorSectorFilter    = `input[aria-label="Selected S&P 500 Index. Filter by Sector"]`
	SelectorSectorOption    = `li[role="option"]`
	SelectorColumnHeader    = `[role="columnheader"]`
	SelectorSymbolCells     = `[data-testid^="glide-cell-0-"]`
	SelectorNameCells       = `[data-testid^="glide-cell-1-"]`

	// SelectorAppFrame is the iframe the hosting platform embeds the app in.
	SelectorAppFrame = `[title="streamlitApp"]`
)

// ContainerMode says where the application's DOM lives.
type ContainerMode string

const (
	// ContainerRoot is a locally served instance: the app is the page.
	ContainerRoot ContainerMode = "root"
	// ContainerIframe is a hosted instance embedded in SelectorAppFrame.
	ContainerIframe ContainerMode = "iframe"
)

// ParseContainerMode parses "root" or "iframe" (case-insensitive).
func ParseContainerMode(s string) (ContainerMode, error) {
	switch ContainerMode(strings.ToLower(strings.TrimSpace(s))) {
	case ContainerRoot:
		return ContainerRoot, nil
	case ContainerIframe:
		return ContainerIframe, nil
	default:
		return "", fmt.Errorf("unknown container mode %q (want %q or %q)", s, ContainerRoot, ContainerIframe)
	}
}

func (m ContainerMode) String() string {
	return string(m)
}
