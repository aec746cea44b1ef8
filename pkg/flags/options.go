// SPDX-License-Identifier: MPL-2.0

package flags

import (
	"fmt"
	"regexp"
)

// umaskRE is the four-digit permission mask grammar enforced at construction.
var umaskRE = regexp.MustCompile(`^[0-9]{4}$`)

type (
	// Common holds the flags accepted by every Borg command.
	Common struct {
		Critical          bool     `flag:"critical"`
		Error             bool     `flag:"error"`
		Warning           bool     `flag:"warning"`
		Info              bool     `flag:"info"`
		Verbose           bool     `flag:"verbose"`
		Debug             bool     `flag:"debug"`
		DebugTopic        []string `flag:"debug_topic"`
		Progress          bool     `flag:"progress"`
		LogJSON           bool     `flag:"log_json"`
		LockWait          int      `flag:"lock_wait"`
		BypassLock        bool     `flag:"bypass_lock"`
		ShowVersion       bool     `flag:"show_version"`
		ShowRC            bool     `flag:"show_rc"`
		Umask             string   `flag:"umask"`
		RemotePath        string   `flag:"remote_path"`
		RemoteRatelimit   int      `flag:"remote_ratelimit"`
		ConsiderPartFiles bool     `flag:"consider_part_files"`
		DebugProfile      string   `flag:"debug_profile"`
		RSH               string   `flag:"rsh"`
	}

	// Exclusion holds the pattern flags shared by commands that filter paths.
	Exclusion struct {
		Exclude      []string `flag:"exclude"`
		ExcludeFrom  string   `flag:"exclude_from"`
		Pattern      []string `flag:"pattern"`
		PatternsFrom string   `flag:"patterns_from"`
	}

	// ExclusionInput extends Exclusion for commands that feed data into an
	// archive.
	ExclusionInput struct {
		Exclusion
		ExcludeCaches    bool     `flag:"exclude_caches"`
		ExcludeIfPresent []string `flag:"exclude_if_present"`
		KeepExcludeTags  bool     `flag:"keep_exclude_tags"`
		KeepTagFiles     bool     `flag:"keep_tag_files" deprecated:"keep_exclude_tags"`
		ExcludeNodump    bool     `flag:"exclude_nodump"`
	}

	// ExclusionOutput extends Exclusion for commands that read data out of an
	// archive.
	ExclusionOutput struct {
		Exclusion
		StripComponents int `flag:"strip_components"`
	}

	// Filesystem controls how filesystem attributes are read and stored.
	Filesystem struct {
		OneFileSystem bool   `flag:"one_file_system"`
		NumericOwner  bool   `flag:"numeric_owner"`
		NoAtime       bool   `flag:"noatime"`
		NoCtime       bool   `flag:"noctime"`
		NoBirthtime   bool   `flag:"nobirthtime"`
		NoBSDFlags    bool   `flag:"nobsdflags"`
		NoACLs        bool   `flag:"noacls"`
		NoXattrs      bool   `flag:"noxattrs"`
		IgnoreInode   bool   `flag:"ignore_inode"`
		FilesCache    string `flag:"files_cache"`
		ReadSpecial   bool   `flag:"read_special"`
	}

	// ArchiveInput holds archive metadata flags for archive-creating commands.
	ArchiveInput struct {
		Comment            string `flag:"comment"`
		Timestamp          string `flag:"timestamp"`
		CheckpointInterval int    `flag:"checkpoint_interval"`
		ChunkerParams      string `flag:"chunker_params"`
		Compression        string `flag:"compression"`
	}

	// ArchivePattern selects archives by name for archive-reading commands.
	ArchivePattern struct {
		Prefix       string `flag:"prefix"`
		GlobArchives string `flag:"glob_archives"`
	}

	// ArchiveOutput extends ArchivePattern with ordering and windowing.
	ArchiveOutput struct {
		ArchivePattern
		SortBy string `flag:"sort_by"`
		First  int    `flag:"first"`
		Last   int    `flag:"last"`
	}
)

// Validate enforces the permission-mask grammar before any invocation.
func (c *Common) Validate() error {
	if c.Umask != "" && !umaskRE.MatchString(c.Umask) {
		return fmt.Errorf("flags: umask must be a 0000-style permission code, got %q", c.Umask)
	}
	return nil
}

type (
	// Init holds the optional flags of `borg init`.
	Init struct {
		AppendOnly     bool   `flag:"append_only"`
		StorageQuota   string `flag:"storage_quota"`
		MakeParentDirs bool   `flag:"make_parent_dirs"`
	}

	// Create holds the optional flags of `borg create`.
	Create struct {
		DryRun       bool   `flag:"dry_run"`
		Stats        bool   `flag:"stats"`
		List         bool   `flag:"list"`
		Filter       string `flag:"filter"`
		JSON         bool   `flag:"json"`
		NoCacheSync  bool   `flag:"no_cache_sync"`
		NoFilesCache bool   `flag:"no_files_cache"`
		StdinName    string `flag:"stdin_name"`
		StdinUser    string `flag:"stdin_user"`
		StdinGroup   string `flag:"stdin_group"`
		StdinMode    string `flag:"stdin_mode"`
	}

	// Extract holds the optional flags of `borg extract`.
	Extract struct {
		List         bool `flag:"list"`
		DryRun       bool `flag:"dry_run"`
		NumericOwner bool `flag:"numeric_owner"`
		NoBSDFlags   bool `flag:"nobsdflags"`
		NoACLs       bool `flag:"noacls"`
		NoXattrs     bool `flag:"noxattrs"`
		Stdout       bool `flag:"stdout"`
		Sparse       bool `flag:"sparse"`
	}

	// Check holds the optional flags of `borg check`.
	Check struct {
		RepositoryOnly bool `flag:"repository_only"`
		ArchivesOnly   bool `flag:"archives_only"`
		VerifyData     bool `flag:"verify_data"`
		Repair         bool `flag:"repair"`
		SaveSpace      bool `flag:"save_space"`
	}

	// List holds the optional flags of `borg list`.
	List struct {
		Short     bool   `flag:"short"`
		Format    string `flag:"format"`
		JSON      bool   `flag:"json"`
		JSONLines bool   `flag:"json_lines"`
	}

	// Diff holds the optional flags of `borg diff`.
	Diff struct {
		NumericOwner      bool `flag:"numeric_owner" deprecated:"numeric_ids"`
		SameChunkerParams bool `flag:"same_chunker_params"`
		Sort              bool `flag:"sort"`
		JSONLines         bool `flag:"json_lines"`
	}

	// Delete holds the optional flags of `borg delete`.
	Delete struct {
		DryRun             bool `flag:"dry_run"`
		List               bool `flag:"list"`
		Stats              bool `flag:"stats"`
		CacheOnly          bool `flag:"cache_only"`
		Force              bool `flag:"force"`
		KeepSecurityInfo   bool `flag:"keep_security_info"`
		SaveSpace          bool `flag:"save_space"`
		CheckpointInterval int  `flag:"checkpoint_interval" default:"1800"`
	}

	// Prune holds the optional flags of `borg prune`.
	Prune struct {
		DryRun       bool   `flag:"dry_run"`
		Force        bool   `flag:"force"`
		Stats        bool   `flag:"stats"`
		List         bool   `flag:"list"`
		KeepWithin   string `flag:"keep_within"`
		KeepLast     int    `flag:"keep_last"`
		KeepSecondly int    `flag:"keep_secondly"`
		KeepMinutely int    `flag:"keep_minutely"`
		KeepHourly   int    `flag:"keep_hourly"`
		KeepDaily    int    `flag:"keep_daily"`
		KeepWeekly   int    `flag:"keep_weekly"`
		KeepMonthly  int    `flag:"keep_monthly"`
		KeepYearly   int    `flag:"keep_yearly"`
		SaveSpace    bool   `flag:"save_space"`
	}

	// Compact holds the optional flags of `borg compact`.
	Compact struct {
		CleanupCommits bool `flag:"cleanup_commits"`
		Threshold      int  `flag:"threshold" default:"10"`
	}

	// Info holds the optional flags of `borg info`.
	Info struct {
		JSON bool `flag:"json"`
	}

	// Mount holds the optional flags of `borg mount`.
	Mount struct {
		Foreground bool   `flag:"foreground" default:"true"`
		O          string `flag:"o"`
	}

	// KeyExport holds the optional flags of `borg key export`.
	KeyExport struct {
		Paper  bool `flag:"paper"`
		QRHTML bool `flag:"qr_html"`
	}

	// KeyImport holds the optional flags of `borg key import`.
	KeyImport struct {
		Paper bool `flag:"paper"`
	}

	// Upgrade holds the optional flags of `borg upgrade`.
	Upgrade struct {
		DryRun     bool `flag:"dry_run"`
		Inplace    bool `flag:"inplace"`
		Force      bool `flag:"force"`
		TAM        bool `flag:"tam"`
		DisableTAM bool `flag:"disable_tam"`
	}

	// Recreate holds the optional flags of `borg recreate`.
	Recreate struct {
		List       bool   `flag:"list"`
		Filter     string `flag:"filter"`
		DryRun     bool   `flag:"dry_run"`
		Stats      bool   `flag:"stats"`
		Target     string `flag:"target"`
		Recompress string `flag:"recompress"`
	}

	// ImportTar holds the optional flags of `borg import-tar`.
	ImportTar struct {
		TarFilter   string `flag:"tar_filter"`
		Stats       bool   `flag:"stats"`
		List        bool   `flag:"list"`
		Filter      string `flag:"filter"`
		JSON        bool   `flag:"json"`
		IgnoreZeros bool   `flag:"ignore_zeros"`
	}

	// ExportTar holds the optional flags of `borg export-tar`.
	ExportTar struct {
		TarFilter string `flag:"tar_filter"`
		List      bool   `flag:"list"`
	}

	// Serve holds the optional flags of `borg serve`.
	Serve struct {
		RestrictToPath       []string `flag:"restrict_to_path"`
		RestrictToRepository []string `flag:"restrict_to_repository"`
		AppendOnly           bool     `flag:"append_only"`
		StorageQuota         string   `flag:"storage_quota"`
	}

	// Config holds the optional flags of `borg config`.
	Config struct {
		Cache  bool `flag:"cache"`
		Delete bool `flag:"delete"`
		List   bool `flag:"list"`
	}
)
