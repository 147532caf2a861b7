package heychat

// Heychat emoji reaction codes. Official emoji use the "[7_<glyph>]" form;
// custom server emoji look like "[custom<id>_<label>]".
const (
	EmojiEyes      = "[7_👀]"
	EmojiTyping    = "[7_⏳]"
	EmojiThumbsUp  = "[7_👍]"
	EmojiHeart     = "[7_❤]"
	EmojiLaugh     = "[7_😂]"
	EmojiSurprised = "[7_😮]"
	EmojiSad       = "[7_😢]"
	EmojiAngry     = "[7_😡]"
)
