package devserver

var seedTranslations = map[string]map[string]string{
	"en": {
		"nav.chat":              "Chat",
		"nav.language":          "Language",
		"chat.title":            "Board Chat",
		"chat.conversation":     "Board Conversation",
		"chat.connected":        "Connected",
		"chat.disconnected":     "Disconnected",
		"chat.online_users":     "Online Users",
		"chat.no_users_online":  "No users currently online",
		"chat.anonymous_user":   "Anonymous User",
		"chat.is_typing":        "is typing...",
		"chat.are_typing":       "are typing...",
		"chat.loading":          "Loading messages...",
		"chat.no_messages":      "No messages yet",
		"chat.type_message":     "Type your message...",
		"chat.notice.connected": "Connected to chat",
	},
	"fr": {
		"nav.chat":              "Chat",
		"nav.language":          "Langue",
		"chat.title":            "Discussion du Conseil",
		"chat.conversation":     "Conversation du Conseil",
		"chat.connected":        "Connecté",
		"chat.disconnected":     "Déconnecté",
		"chat.online_users":     "Utilisateurs en ligne",
		"chat.no_users_online":  "Aucun utilisateur en ligne",
		"chat.anonymous_user":   "Utilisateur anonyme",
		"chat.is_typing":        "est en train d'écrire...",
		"chat.are_typing":       "sont en train d'écrire...",
		"chat.loading":          "Chargement des messages...",
		"chat.no_messages":      "Aucun message pour le moment",
		"chat.type_message":     "Tapez votre message...",
		"chat.notice.connected": "Connecté à la discussion",
	},
}
