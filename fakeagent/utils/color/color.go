// fakeagent/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	infoColor         = color.New(color.FgGreen)
	errorColor        = color.New(color.FgRed, color.Bold)
	agentRespColor    = color.New(color.FgHiYellow, color.Bold)
	finalSuccessColor = color.New(color.FgGreen, color.Bold)
)

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

func ColorAgentResponse(s string) string {
	return agentRespColor.Sprint(s)
}

func ColorFinalSuccess(s string) string {
	return finalSuccessColor.Sprint(s)
}
