package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/kjk/kvlog/log"
	"github.com/melbahja/goph"
	"github.com/pkg/sftp"
)

type SFTPConfig struct {
	User           string
	Host           string
	PrivateKeyPath string
	// passphrase for the private key, if it has one
	Passphrase string
}

// SFTP uploads backups to a server over ssh
type SFTP struct {
	ssh  *goph.Client
	sftp *sftp.Client
}

func (c *SFTPConfig) validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.User == "" || c.Host == "" || c.PrivateKeyPath == "" {
		return errors.New("must provide User, Host and PrivateKeyPath in config")
	}
	return nil
}

// NewSFTP connects to the server. The host must be in known_hosts.
func NewSFTP(config *SFTPConfig) (*SFTP, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	auth, err := goph.Key(config.PrivateKeyPath, config.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("goph.Key() failed with '%w'", err)
	}
	client, err := goph.New(config.User, config.Host, auth)
	if err != nil {
		return nil, fmt.Errorf("goph.New() failed with '%w'", err)
	}
	sc, err := client.NewSftp()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("client.NewSftp() failed with '%w'", err)
	}
	return &SFTP{
		ssh:  client,
		sftp: sc,
	}, nil
}

// Upload copies localPath to remotePath on the server.
// Data is written to remotePath + ".tmp" and renamed when complete.
func (s *SFTP) Upload(remotePath string, localPath string) error {
	timeStart := time.Now()
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err = s.sftp.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("sftp.MkdirAll('%s') failed with '%w'", path.Dir(remotePath), err)
	}
	tmpPath := remotePath + ".tmp"
	rf, err := s.sftp.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("sftp.Create('%s') failed with '%w'", tmpPath, err)
	}
	n, err := io.Copy(rf, f)
	errClose := rf.Close()
	if err == nil {
		err = errClose
	}
	if err != nil {
		_ = s.sftp.Remove(tmpPath)
		return fmt.Errorf("upload of '%s' failed: %w", localPath, err)
	}
	if err = s.sftp.PosixRename(tmpPath, remotePath); err != nil {
		_ = s.sftp.Remove(tmpPath)
		return fmt.Errorf("sftp.PosixRename('%s', '%s') failed with '%w'", tmpPath, remotePath, err)
	}

	dur := time.Since(timeStart)
	log.Verbosef("backup: uploaded '%s' to sftp '%s' (%d bytes) in %s\n", localPath, remotePath, n, dur)
	log.EventWithDuration("backup_sftp_upload", dur, "local", localPath, "remote", remotePath, "size", n)
	return nil
}

func (s *SFTP) Close() error {
	err := s.sftp.Close()
	return errors.Join(err, s.ssh.Close())
}
