package service

import (
	"context"
	"strings"

	"copier_bot/internal/models"
	metaapi "copier_bot/internal/modules/metaapi/service"
	"copier_bot/pkg/logger"
)

// handleAddAccount: "логин; пароль; сервер" -> provision + deploy в
// облаке, счёт в профиль. Уже заведённый в MetaApi счёт можно привязать
// одним его id без пароля.
func (t *Telegram) handleAddAccount(ctx context.Context, chatID int64, platform models.Platform, text string) {
	text = strings.TrimSpace(text)

	if !strings.Contains(text, ";") && len(text) >= 16 && !strings.ContainsAny(text, " \t") {
		t.attachExistingAccount(ctx, chatID, platform, text)
		return
	}

	parts := strings.Split(text, ";")
	if len(parts) != 3 {
		t.Send(ctx, chatID, "Формат: `логин; пароль; сервер` либо id уже заведённого счёта MetaApi. Начни заново: /add_"+string(platform))
		return
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	login, password, server := parts[0], parts[1], parts[2]
	if login == "" || password == "" || server == "" {
		t.Send(ctx, chatID, "Все три поля обязательны. Начни заново: /add_"+string(platform))
		return
	}

	t.Send(ctx, chatID, "⏳ Подключаю счёт, это может занять минуту...")

	accountID, err := t.trading.ProvisionAccount(ctx, metaapi.ProvisionRequest{
		Login:    login,
		Password: password,
		Name:     string(platform) + "-" + login,
		Server:   server,
		Platform: string(platform),
	})
	if err != nil {
		if metaapi.IsFunding(err) {
			t.Send(ctx, chatID, "💳 Шлюз отклонил подключение по биллингу, проверь оплату подписки.")
			return
		}
		logger.Error("provision account for %d: %v", chatID, err)
		t.SendF(ctx, chatID, "❗️ Не удалось подключить счёт: %v", err)
		return
	}

	if err := t.trading.DeployAccount(ctx, accountID); err != nil {
		logger.Error("deploy account %s: %v", accountID, err)
		t.SendF(ctx, chatID, "❗️ Счёт создан, но не развёрнут: %v", err)
		return
	}

	ok := t.profs.AddAccount(ctx, chatID, models.Account{
		ID:       accountID,
		Login:    login,
		Name:     string(platform) + "-" + login,
		Platform: platform,
	})
	if !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}

	t.SendF(ctx, chatID, "✅ Счёт %s (%s) подключён и разворачивается. Статус — в 📊 Статус.",
		login, strings.ToUpper(string(platform)))
}

// attachExistingAccount привязывает уже существующий в облаке счёт.
func (t *Telegram) attachExistingAccount(ctx context.Context, chatID int64, platform models.Platform, accountID string) {
	acc, err := t.trading.GetAccount(ctx, accountID)
	if err != nil {
		t.SendF(ctx, chatID, "❗️ Не нашёл счёт %s в MetaApi: %v", accountID, err)
		return
	}

	if acc.State != "DEPLOYED" {
		if err := t.trading.DeployAccount(ctx, accountID); err != nil {
			logger.Error("deploy account %s: %v", accountID, err)
		}
	}

	ok := t.profs.AddAccount(ctx, chatID, models.Account{
		ID:       acc.ID,
		Login:    acc.Login,
		Name:     acc.Name,
		Platform: platform,
	})
	if !ok {
		t.Send(ctx, chatID, "Профиль не найден, попробуй /start")
		return
	}

	t.SendF(ctx, chatID, "✅ Счёт %s привязан (%s).", acc.Login, acc.State)
}
