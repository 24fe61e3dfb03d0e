package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"logOffAPI/internal/notification"
)

// PushNotificationProvider is the push side of delivery, satisfied by the
// FCM client.
type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// EmailProvider is the email side of delivery, satisfied by the Resend
// client.
type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// NotificationDispatcher delivers queued notifications through the
// configured channels on a small worker pool. Nothing upstream waits on
// it; a full queue drops the delivery attempt and leaves the row pending.
type NotificationDispatcher struct {
	service       *NotificationService
	pushProvider  PushNotificationProvider
	emailProvider EmailProvider
	workers       int
	jobQueue      chan *dispatchJob
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

type dispatchJob struct {
	notification *notification.Notification
	preferences  *notification.Preferences
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	d := &NotificationDispatcher{
		service:  service,
		workers:  5,
		jobQueue: make(chan *dispatchJob, 100),
		stopChan: make(chan struct{}),
	}
	d.startWorkers()
	return d
}

func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) SetEmailProvider(provider EmailProvider) {
	d.emailProvider = provider
}

// Dispatch queues a notification for delivery without blocking the caller.
func (d *NotificationDispatcher) Dispatch(n *notification.Notification, prefs *notification.Preferences) {
	select {
	case d.jobQueue <- &dispatchJob{notification: n, preferences: prefs}:
	default:
		log.Printf("Dispatch: queue full, notification %s stays pending", n.ID)
	}
}

// Stop shuts the worker pool down and waits for in-flight jobs.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notif := job.notification
	prefs := job.preferences

	delivered := false
	if prefs.PushEnabled && len(prefs.DeviceTokens) > 0 && d.pushProvider != nil {
		err := d.pushProvider.SendPush(ctx, prefs.DeviceTokens, notif.Title, notif.Body, notif.Data)
		if err != nil {
			log.Printf("Push failed for user %s: %v", notif.UserID, err)
		} else {
			delivered = true
		}
	}

	if prefs.EmailEnabled && prefs.Email != "" && d.emailProvider != nil {
		err := d.emailProvider.SendEmail(ctx, prefs.Email, notif.Title, notif.Body)
		if err != nil {
			log.Printf("Email failed for user %s: %v", notif.UserID, err)
		} else {
			delivered = true
		}
	}

	if delivered {
		d.service.markAsSent(ctx, notif.ID)
	} else if (prefs.PushEnabled && d.pushProvider != nil) || (prefs.EmailEnabled && d.emailProvider != nil) {
		d.service.markAsFailed(ctx, notif.ID, errAllChannelsFailed)
	}
	// No channel configured at all: the row stays pending and is still
	// visible in the in-app list.
}

var errAllChannelsFailed = errors.New("all delivery channels failed")
