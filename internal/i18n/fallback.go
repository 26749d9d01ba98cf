package i18n

// fallbackBundle is used when the backend cannot serve translations. Only
// navigation labels are covered; everything else falls through to defaults.
func fallbackBundle(lang string) map[string]string {
	if lang == "fr" {
		return map[string]string{
			"nav.home":         "Accueil",
			"nav.meetings":     "Réunions",
			"nav.documents":    "Documents",
			"nav.tasks":        "Tâches",
			"nav.updates":      "Actualités du Conseil",
			"nav.chat":         "Chat",
			"nav.language":     "Langue",
			"nav.translations": "Gestion des Traductions",
		}
	}
	return map[string]string{
		"nav.home":         "Home",
		"nav.meetings":     "Meetings",
		"nav.documents":    "Documents",
		"nav.tasks":        "Tasks",
		"nav.updates":      "Board Updates",
		"nav.chat":         "Chat",
		"nav.language":     "Language",
		"nav.translations": "Translation Management",
	}
}
