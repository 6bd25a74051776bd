// Command investment-analyzer wires the analytics core to a local SQLite
// store. It is a minimal host: opening a concrete Quote/Broker Provider pair
// (the brokerage handshake and HTTP scraping) is deliberately out of scope
// for this core and left to the embedding application.
package main

import (
	"fmt"
	"os"

	"investment-analyzer/internal/logger"
	"investment-analyzer/internal/store"
)

var version = "dev"

func main() {
	logger.Banner(version)

	st, err := store.Open()
	if err != nil {
		logger.Error("MAIN", fmt.Sprintf("open store: %v", err))
		os.Exit(1)
	}
	defer st.Close()

	logger.Section("ready")
	logger.Stats("schema", "migrated")
	logger.Info("MAIN", "store ready; wire internal/provider.QuoteProvider and BrokerProvider implementations to start syncing")
}
