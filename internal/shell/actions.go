package shell

import (
	"context"
	"errors"
	"fmt"

	"github.com/shinji-kodama/penv/internal/pip"
	"github.com/shinji-kodama/penv/internal/requirements"
)

// track runs op with a Tracker and finishes it with op's error.
func (s *Shell) track(title string, perItem bool, op func(obs pip.Observer) error) error {
	t := NewTracker(s.progress, title, perItem)
	err := op(t.Observe)
	t.Finish(err)
	return err
}

func (s *Shell) installPackage(ctx context.Context) error {
	name, err := s.prompt.Ask(ctx, "Enter package name to install: ")
	if err != nil || name == "" {
		return ignoreEOF(err)
	}

	s.logger.Info("Installing", "package", name)
	err = s.track("Installing "+name, false, func(obs pip.Observer) error {
		return s.ops.Install(ctx, name, obs)
	})
	if errors.Is(err, pip.ErrAlreadyInstalled) {
		s.logger.Warn(fmt.Sprintf("%s (skipped, already installed)", name))
		return nil
	}
	if err != nil {
		return err
	}
	s.printSuccess(fmt.Sprintf("Package '%s' installed successfully.", name))
	return nil
}

func (s *Shell) removePackage(ctx context.Context) error {
	name, err := s.prompt.Ask(ctx, "Enter package name to remove: ")
	if err != nil || name == "" {
		return ignoreEOF(err)
	}

	s.logger.Info("Removing", "package", name)
	err = s.track("Removing "+name, false, func(obs pip.Observer) error {
		return s.ops.Uninstall(ctx, name, obs)
	})
	if err != nil {
		return err
	}
	s.printSuccess(fmt.Sprintf("Package '%s' removed successfully.", name))
	return nil
}

func (s *Shell) removeAll(ctx context.Context) error {
	ok, err := s.prompt.Confirm(ctx, "Are you sure you want to remove all packages? (y/n): ")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(s.out, mutedStyle.Render("Operation cancelled."))
		return nil
	}

	s.logger.Info("Removing all installed packages...")
	var removed int
	err = s.track("Removing packages", true, func(obs pip.Observer) error {
		var opErr error
		removed, opErr = s.ops.UninstallAll(ctx, obs)
		return opErr
	})
	if err != nil {
		return err
	}
	if removed == 0 {
		s.logger.Info("No packages to remove.")
		return nil
	}
	s.printSuccess(fmt.Sprintf("All packages removed successfully (%d).", removed))
	return nil
}

func (s *Shell) installFromFile(ctx context.Context) error {
	label := fmt.Sprintf("Enter the path to the requirements file [%s]: ", s.opts.RequirementsFile)
	path, err := s.prompt.AskDefault(ctx, label, s.opts.RequirementsFile)
	if err != nil {
		return ignoreEOF(err)
	}

	s.logger.Info("Checking for installed packages before installation...")
	var report *pip.InstallReport
	err = s.track("Installing packages", false, func(obs pip.Observer) error {
		var opErr error
		report, opErr = s.ops.InstallRequirements(ctx, path, obs)
		return opErr
	})
	if report != nil {
		for _, name := range report.Present {
			s.logger.Info(fmt.Sprintf("%s is already installed (skipping)", name))
		}
	}
	if err != nil {
		return err
	}

	if report.NothingToInstall() {
		s.logger.Info("All required packages are already installed. Nothing to install.")
		return nil
	}
	if len(report.Unresolved) > 0 {
		s.printSuccess(fmt.Sprintf("Installed requirements from '%s'.", path))
		return nil
	}
	s.printSuccess(fmt.Sprintf("Installed %d package(s) from '%s'.", len(report.Installed), path))
	return nil
}

func (s *Shell) listPackages(ctx context.Context) error {
	pkgs, err := s.ops.List(ctx)
	if err != nil {
		return err
	}
	PrintPackages(s.out, pkgs)
	return nil
}

func (s *Shell) generateRequirements(ctx context.Context) error {
	path := s.opts.RequirementsFile
	s.logger.Info(fmt.Sprintf("Generating %s...", path))

	out, err := s.ops.Freeze(ctx)
	if err != nil {
		return err
	}
	if err := requirements.Write(path, out); err != nil {
		return err
	}
	s.printSuccess(fmt.Sprintf("%s created successfully.", path))
	return nil
}

func (s *Shell) checkUpdates(ctx context.Context) error {
	s.logger.Info("Checking for outdated packages...")

	outdated, err := s.ops.Outdated(ctx)
	if err != nil {
		return err
	}
	if len(outdated) == 0 {
		s.logger.Info("All packages are up to date.")
		return nil
	}

	s.logger.Info(fmt.Sprintf("Found %d outdated package(s).", len(outdated)))
	PrintOutdated(s.out, outdated)

	ok, err := s.prompt.Confirm(ctx, "Do you want to update all outdated packages? (y/n): ")
	if err != nil || !ok {
		return err
	}

	names := make([]string, 0, len(outdated))
	for _, p := range outdated {
		names = append(names, p.Name)
	}

	var upgraded int
	err = s.track("Updating packages", true, func(obs pip.Observer) error {
		var opErr error
		upgraded, opErr = s.ops.Upgrade(ctx, names, obs)
		return opErr
	})
	if err != nil {
		return err
	}
	s.printSuccess(fmt.Sprintf("%d package(s) updated successfully.", upgraded))
	return nil
}
