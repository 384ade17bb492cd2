package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

const settingAPKURL = "apk_url"

// settingsService implements the SettingsService interface
type settingsService struct {
	uowFactory    UnitOfWorkFactory
	defaultAPKURL string
}

// NewSettingsService creates a settings service. defaultAPKURL is served until an admin sets one.
func NewSettingsService(uowFactory UnitOfWorkFactory, defaultAPKURL string) SettingsService {
	return &settingsService{
		uowFactory:    uowFactory,
		defaultAPKURL: defaultAPKURL,
	}
}

// APKURL returns the current download link, empty when none is configured
func (s *settingsService) APKURL(ctx context.Context) (string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	value, ok, err := uow.SettingsRepository().Get(ctx, settingAPKURL)
	if err != nil {
		return "", storageErr("get apk url", err)
	}
	if !ok {
		return s.defaultAPKURL, nil
	}
	return value, nil
}

// SetAPKURL stores a new download link after checking it is an absolute http(s) URL
func (s *settingsService) SetAPKURL(ctx context.Context, adminID int64, raw string) error {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid apk url %q", raw)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.SettingsRepository().Set(ctx, settingAPKURL, raw, adminID); err != nil {
		return storageErr("set apk url", err)
	}
	if err := uow.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"adminID": adminID,
		"url":     raw,
	}).Info("APK url updated")
	return nil
}

// RemoveAPKURL drops the admin link so the default applies again
func (s *settingsService) RemoveAPKURL(ctx context.Context, adminID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.SettingsRepository().Delete(ctx, settingAPKURL); err != nil {
		return storageErr("delete apk url", err)
	}
	if err := uow.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}

	log.WithField("adminID", adminID).Info("APK url removed")
	return nil
}
