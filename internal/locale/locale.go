// Package locale provides the small message table used for text that ends
// up inside exported documents or the console chrome. Lookup is pure: a
// locale tag plus message key yields a string, with English as the
// fallback for unknown locales and untranslated keys.
package locale

// Message keys.
const (
	MsgChangeDirComment = "export.changeDirComment"
	MsgConsoleWelcome   = "console.welcome"
	MsgConsoleGoodbye   = "console.goodbye"
)

var messages = map[string]map[string]string{
	"en": {
		MsgChangeDirComment: "# Change directory so that relative paths resolve the same way they did during the session",
		MsgConsoleWelcome:   "nbook interactive console. Enter code to run, /md for markdown, /quit to leave.",
		MsgConsoleGoodbye:   "Session saved.",
	},
	"de": {
		MsgChangeDirComment: "# Verzeichnis wechseln, damit relative Pfade wie in der Sitzung aufgeloest werden",
		MsgConsoleWelcome:   "nbook interaktive Konsole. Code eingeben, /md fuer Markdown, /quit zum Beenden.",
		MsgConsoleGoodbye:   "Sitzung gespeichert.",
	},
}

// Lookup returns the message for key in the given locale, falling back to
// English and finally to the key itself.
func Lookup(loc, key string) string {
	if table, ok := messages[loc]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages["en"][key]; ok {
		return msg
	}
	return key
}

// Func binds a locale, yielding the lookup shape collaborators accept.
func Func(loc string) func(string) string {
	return func(key string) string { return Lookup(loc, key) }
}
