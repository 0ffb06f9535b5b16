package reputation

// trackedFactions maps every imported faction key to its canonical display
// name. Anything else in an export (guild factions keyed by UUID, for
// instance) is ignored.
var trackedFactions = map[string]string{
	"AthenasFortune":   "Fortune d'Athéna",
	"ReapersBones":     "Os de la faucheuse",
	"HuntersCall":      "L'appel du chasseur",
	"GoldHoarders":     "Collectionneurs d'or",
	"SeaDogs":          "Loups de mer",
	"TallTales":        "Fables du flibustier",
	"OrderOfSouls":     "Ordre des âmes",
	"MerchantAlliance": "Alliance des marchands",
	"CreatorCrew":      "Creator Crew",
	"BilgeRats":        "Aventure en mer",
	"PirateLord":       "Gardiens de la Fortune",
	"Flameheart":       "Serviteurs de la Flamme",
}

// DefaultMottoes are the mottoes of a few factions as displayed in the
// canonical language. One of them must appear in an export for it to be accepted.
var DefaultMottoes = []string{
	"Les mers nous appartiennent", // AthenasFortune
	"Nous voyons tout",            // OrderOfSouls
	"Le commerce avant tout",      // MerchantAlliance
}

const defaultCampaignKey = "default"

func IsTrackedFaction(key string) bool {
	_, ok := trackedFactions[key]
	return ok
}

// FactionName returns the canonical name of a tracked faction, or the key itself.
func FactionName(key string) string {
	if name, ok := trackedFactions[key]; ok {
		return name
	}
	return key
}

// ValidateLanguage reports whether at least one faction motto of the payload
// exactly matches one of mottoes.
func ValidateLanguage(p Payload, mottoes []string) bool {
	known := make(map[string]struct{}, len(mottoes))
	for _, m := range mottoes {
		known[m] = struct{}{}
	}
	for _, f := range p.Factions {
		if f.Motto == "" {
			continue
		}
		if _, ok := known[f.Motto]; ok {
			return true
		}
	}
	return false
}
