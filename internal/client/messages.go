package client

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys for the alerts shown to the user.
const (
	msgLoginAgain        = "Please log in again."
	msgGeneric           = "Something went wrong. Please try again."
	msgInvalidCredential = "Invalid email or password."
)

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, e := range []struct {
		tag        language.Tag
		key        string
		translated string
	}{
		{language.English, msgLoginAgain, msgLoginAgain},
		{language.English, msgGeneric, msgGeneric},
		{language.English, msgInvalidCredential, msgInvalidCredential},
		{language.Indonesian, msgLoginAgain, "Silakan masuk kembali."},
		{language.Indonesian, msgGeneric, "Terjadi kesalahan. Silakan coba lagi."},
		{language.Indonesian, msgInvalidCredential, "Email atau kata sandi salah."},
	} {
		if err := b.SetString(e.tag, e.key, e.translated); err != nil {
			panic(err)
		}
	}
	return b
}

func localize(tag language.Tag, key string) string {
	return message.NewPrinter(tag, message.Catalog(messages)).Sprintf(key)
}
