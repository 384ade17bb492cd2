package common

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data of the inline buttons
const (
	CallbackGetSignal   = "get_signal"
	CallbackBalance     = "check_balance"
	CallbackReferrals   = "referrals"
	CallbackDownloadAPK = "download_apk"
	CallbackHelp        = "help"
	CallbackMainMenu    = "main_menu"

	CallbackStartGame = "start_game"
	CallbackNextRow   = "next_row"
	CallbackEndGame   = "end_game"

	CallbackAdminPanel     = "admin_panel"
	CallbackAdminStats     = "admin_stats"
	CallbackAdminUser      = "admin_user"
	CallbackAdminAddAPK    = "admin_add_apk"
	CallbackAdminRemoveAPK = "admin_remove_apk"
	CallbackAdminBalance   = "admin_add_balance"

	// followed by ":<telegram id>"
	CallbackAdminAdjust    = "admin_adjust"
	CallbackAdminMarkBonus = "admin_mark_bonus"
	CallbackAdminGrantAPK  = "admin_grant_apk"
)

// MainMenuKeyboard is the menu every screen leads back to
func MainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎮 Get signal", CallbackGetSignal),
			tgbotapi.NewInlineKeyboardButtonData("💰 Balance", CallbackBalance),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Referrals", CallbackReferrals),
			tgbotapi.NewInlineKeyboardButtonData("📱 Download APK", CallbackDownloadAPK),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", CallbackHelp),
		),
	)
}

// StartGameKeyboard is shown once a bet id was accepted
func StartGameKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Start game", CallbackStartGame),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", CallbackMainMenu),
		),
	)
}

// GameControlKeyboard drives a running signal game
func GameControlKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Next row", CallbackNextRow),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏹️ End game", CallbackEndGame),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", CallbackMainMenu),
		),
	)
}

// AdminPanelKeyboard lists the admin actions
func AdminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", CallbackAdminStats),
			tgbotapi.NewInlineKeyboardButtonData("👤 User", CallbackAdminUser),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Set APK", CallbackAdminAddAPK),
			tgbotapi.NewInlineKeyboardButtonData("❌ Remove APK", CallbackAdminRemoveAPK),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Adjust balance", CallbackAdminBalance),
			tgbotapi.NewInlineKeyboardButtonData("🏠 Exit", CallbackMainMenu),
		),
	)
}

// BackKeyboard is a single back button
func BackKeyboard(callback string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Back", callback),
		),
	)
}

// LinkKeyboard opens url and offers a way back to the menu
func LinkKeyboard(label, url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(label, url),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Back", CallbackMainMenu),
		),
	)
}
