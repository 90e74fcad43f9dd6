package banner

import (
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
)

// PrintServer shows the banner for the central ingestion/dashboard server.
func PrintServer() {
	print("Err", "Watch", "🛰  ErrWatch Server - Fleet Error Ingestion & Insights",
		"Deduplicates, categorizes, and trends errors streamed from a fleet of agents."+
			"\nServes the dashboard REST API and push broadcast channel."+
			"\nVersion 0.1.0.")
}

// PrintAgent shows the banner for the per-host tailing agent.
func PrintAgent() {
	print("Err", "Watch Agent", "📡  ErrWatch Agent - Smart Log Tailer & Scout",
		"Tails local logs, scores urgency, and streams high-signal errors upstream."+
			"\nReconnects with backoff when the server link drops."+
			"\nVersion 0.1.0.")
}

func print(left, right, header, blurb string) {
	logo, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithRGB(left, pterm.NewRGB(255, 107, 53)),
		putils.LettersFromStringWithRGB(right, pterm.NewRGB(0, 0, 0))).
		Srender()

	pterm.DefaultCenter.Print(logo)

	pterm.DefaultCenter.Print(
		pterm.DefaultHeader.
			WithFullWidth().
			WithBackgroundStyle(pterm.NewStyle(pterm.BgLightRed)).
			WithMargin(5).
			Sprint(pterm.White(header)),
	)

	pterm.Info.Println(blurb)
}
