package domain

import (
	"log/slog"
	"os"
)

// WithFindWorking makes the lookup read the work tree instead of HEAD.
func WithFindWorking(w bool) FindOption {
	return func(fo *FindOptions) {
		fo.Working = w
	}
}

// WithFindSort specifies the sort order for query results.
func WithFindSort(s Sort) FindOption {
	return func(fo *FindOptions) {
		fo.Sort = s
	}
}

// WithFindSkip sets the number of documents to skip in query results.
func WithFindSkip(s int64) FindOption {
	return func(fo *FindOptions) {
		fo.Skip = s
	}
}

// WithFindLimit sets the maximum number of documents to return.
func WithFindLimit(l int64) FindOption {
	return func(fo *FindOptions) {
		fo.Limit = l
	}
}

// FindOption configures query behavior through the functional options pattern.
type FindOption func(*FindOptions)

// FindOptions contains parameters for customizing query execution.
type FindOptions struct {
	// Working reads the work tree instead of the last commit.
	Working bool
	// Sort specifies the sort order for results.
	Sort Sort
	// Skip specifies the number of documents to skip.
	Skip int64
	// Limit specifies the maximum number of documents to return.
	Limit int64
}

// Scope returns the snapshot scope selected by the options.
func (fo FindOptions) Scope() Scope {
	if fo.Working {
		return ScopeWorking
	}
	return ScopeCommitted
}

// WithGrepOr makes a document match when any term matches.
func WithGrepOr(o bool) GrepOption {
	return func(gro *GrepOptions) {
		gro.Or = o
	}
}

// WithGrepWorking searches the work tree instead of HEAD.
func WithGrepWorking(w bool) GrepOption {
	return func(gro *GrepOptions) {
		gro.Working = w
	}
}

// GrepOption configures content searches through the functional options
// pattern.
type GrepOption func(*GrepOptions)

// GrepOptions contains parameters for customizing content searches.
type GrepOptions = SearchOptions

// WithUpdateMulti enables updating multiple documents that match the query.
func WithUpdateMulti(m bool) UpdateOption {
	return func(uo *UpdateOptions) {
		uo.Multi = m
	}
}

// WithUpsert enables inserting a document if no matches are found and the
// query is a bare `_name` equality.
func WithUpsert(u bool) UpdateOption {
	return func(uo *UpdateOptions) {
		uo.Upsert = u
	}
}

// UpdateOption configures update behavior through the functional options
// pattern.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains parameters for customizing update operations.
type UpdateOptions struct {
	// Multi enables updating multiple documents that match the query.
	Multi bool
	// Upsert enables inserting a document if no matches are found.
	Upsert bool
}

// WithRemoveMulti enables removing multiple documents that match the query.
func WithRemoveMulti(m bool) RemoveOption {
	return func(ro *RemoveOptions) {
		ro.Multi = m
	}
}

// RemoveOption configures remove behavior through the functional options
// pattern.
type RemoveOption func(*RemoveOptions)

// RemoveOptions contains parameters for customizing remove operations.
type RemoveOptions struct {
	// Multi enables removing multiple documents that match the query.
	Multi bool
}

// WithCursorSnapshot sets the snapshot documents are loaded from.
func WithCursorSnapshot(s Snapshot) CursorOption {
	return func(co *CursorOptions) {
		co.Snapshot = s
	}
}

// WithCursorScope sets the scope documents are loaded with.
func WithCursorScope(s Scope) CursorOption {
	return func(co *CursorOptions) {
		co.Scope = s
	}
}

// WithCursorBase sets the collection path the references belong to. It is
// used as search scope by [Cursor.Grep].
func WithCursorBase(p string) CursorOption {
	return func(co *CursorOptions) {
		co.Base = p
	}
}

// WithCursorCodec sets the codec used to load documents.
func WithCursorCodec(c Codec) CursorOption {
	return func(co *CursorOptions) {
		co.Codec = c
	}
}

// WithCursorMatcher sets the matcher used by [Cursor.Find].
func WithCursorMatcher(m Matcher) CursorOption {
	return func(co *CursorOptions) {
		co.Matcher = m
	}
}

// WithCursorComparer sets the comparer used by [Cursor.Sort].
func WithCursorComparer(c Comparer) CursorOption {
	return func(co *CursorOptions) {
		co.Comparer = c
	}
}

// WithCursorSearcher sets the content search used by [Cursor.Grep].
func WithCursorSearcher(s Searcher) CursorOption {
	return func(co *CursorOptions) {
		co.Searcher = s
	}
}

// WithCursorDecoder sets the decoder used by [Cursor.Scan].
func WithCursorDecoder(d Decoder) CursorOption {
	return func(co *CursorOptions) {
		co.Decoder = d
	}
}

// WithCursorLogger sets the logger used by the cursor.
func WithCursorLogger(l *slog.Logger) CursorOption {
	return func(co *CursorOptions) {
		co.Logger = l
	}
}

// WithCursorRecorder sets the metrics recorder used by the cursor.
func WithCursorRecorder(r Recorder) CursorOption {
	return func(co *CursorOptions) {
		co.Recorder = r
	}
}

// WithCursorFieldNavigator sets how sort keys are read.
func WithCursorFieldNavigator(f FieldNavigator) CursorOption {
	return func(co *CursorOptions) {
		co.FieldNavigator = f
	}
}

// CursorOption configures cursor behavior through the functional options
// pattern.
type CursorOption func(*CursorOptions)

// CursorOptions contains parameters for customizing cursors.
type CursorOptions struct {
	Snapshot Snapshot
	Scope    Scope
	Base     string
	Codec    Codec
	Matcher  Matcher
	Comparer Comparer
	Searcher Searcher
	Decoder  Decoder
	Logger   *slog.Logger
	Recorder Recorder

	FieldNavigator FieldNavigator
}

// WithCodecClassifier sets the classifier used to tell nested entries apart.
func WithCodecClassifier(c Classifier) CodecOption {
	return func(co *CodecOptions) {
		co.Classifier = c
	}
}

// WithCodecInlineText makes working-tree loads of directory documents inline
// text attachments as string attributes.
func WithCodecInlineText(i bool) CodecOption {
	return func(co *CodecOptions) {
		co.InlineText = i
	}
}

// WithCodecFileMode sets the mode of written files.
func WithCodecFileMode(m os.FileMode) CodecOption {
	return func(co *CodecOptions) {
		co.FileMode = m
	}
}

// WithCodecDirMode sets the mode of created directories.
func WithCodecDirMode(m os.FileMode) CodecOption {
	return func(co *CodecOptions) {
		co.DirMode = m
	}
}

// WithCodecLogger sets the logger used to report recovered decoding errors.
func WithCodecLogger(l *slog.Logger) CodecOption {
	return func(co *CodecOptions) {
		co.Logger = l
	}
}

// WithCodecRecorder sets the metrics recorder.
func WithCodecRecorder(r Recorder) CodecOption {
	return func(co *CodecOptions) {
		co.Recorder = r
	}
}

// CodecOption configures the codec through the functional options pattern.
type CodecOption func(*CodecOptions)

// CodecOptions contains parameters for customizing the codec.
type CodecOptions struct {
	Classifier Classifier
	InlineText bool
	FileMode   os.FileMode
	DirMode    os.FileMode
	Logger     *slog.Logger
	Recorder   Recorder
}

// WithCollectionRepository sets the storage collaborators.
func WithCollectionRepository(r Repository) CollectionOption {
	return func(co *CollectionOptions) {
		co.Repository = r
	}
}

// WithCollectionClassifier sets the path classifier.
func WithCollectionClassifier(c Classifier) CollectionOption {
	return func(co *CollectionOptions) {
		co.Classifier = c
	}
}

// WithCollectionCodec sets the document codec.
func WithCollectionCodec(c Codec) CollectionOption {
	return func(co *CollectionOptions) {
		co.Codec = c
	}
}

// WithCollectionMatcher sets the query matcher.
func WithCollectionMatcher(m Matcher) CollectionOption {
	return func(co *CollectionOptions) {
		co.Matcher = m
	}
}

// WithCollectionModifier sets the update engine.
func WithCollectionModifier(m Modifier) CollectionOption {
	return func(co *CollectionOptions) {
		co.Modifier = m
	}
}

// WithCollectionComparer sets the comparer.
func WithCollectionComparer(c Comparer) CollectionOption {
	return func(co *CollectionOptions) {
		co.Comparer = c
	}
}

// WithCollectionCursorFactory sets the function for creating cursors.
func WithCollectionCursorFactory(cf CursorFactory) CollectionOption {
	return func(co *CollectionOptions) {
		co.CursorFactory = cf
	}
}

// WithCollectionDecoder sets the decoder handed to cursors.
func WithCollectionDecoder(d Decoder) CollectionOption {
	return func(co *CollectionOptions) {
		co.Decoder = d
	}
}

// WithCollectionNameGenerator sets the generator for unnamed inserts.
func WithCollectionNameGenerator(g NameGenerator) CollectionOption {
	return func(co *CollectionOptions) {
		co.NameGenerator = g
	}
}

// WithCollectionDirMode sets the mode of directories created for new
// collections.
func WithCollectionDirMode(m os.FileMode) CollectionOption {
	return func(co *CollectionOptions) {
		co.DirMode = m
	}
}

// WithCollectionLogger sets the logger.
func WithCollectionLogger(l *slog.Logger) CollectionOption {
	return func(co *CollectionOptions) {
		co.Logger = l
	}
}

// WithCollectionRecorder sets the metrics recorder.
func WithCollectionRecorder(r Recorder) CollectionOption {
	return func(co *CollectionOptions) {
		co.Recorder = r
	}
}

// CollectionOption configures a collection through the functional options
// pattern.
type CollectionOption func(*CollectionOptions)

// CollectionOptions contains the collaborators of a collection.
type CollectionOptions struct {
	Repository    Repository
	Classifier    Classifier
	Codec         Codec
	Matcher       Matcher
	Modifier      Modifier
	Comparer      Comparer
	CursorFactory CursorFactory
	Decoder       Decoder
	NameGenerator NameGenerator
	DirMode       os.FileMode
	Logger        *slog.Logger
	Recorder      Recorder
}

// WithDatabaseRepository sets the storage collaborators.
func WithDatabaseRepository(r Repository) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Repository = r
	}
}

// WithDatabaseClassifier sets the path classifier.
func WithDatabaseClassifier(c Classifier) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Classifier = c
	}
}

// WithDatabaseCodec sets the document codec.
func WithDatabaseCodec(c Codec) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Codec = c
	}
}

// WithDatabaseMatcher sets the query matcher.
func WithDatabaseMatcher(m Matcher) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Matcher = m
	}
}

// WithDatabaseModifier sets the update engine.
func WithDatabaseModifier(m Modifier) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Modifier = m
	}
}

// WithDatabaseComparer sets the comparer.
func WithDatabaseComparer(c Comparer) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Comparer = c
	}
}

// WithDatabaseCursorFactory sets the function for creating cursors.
func WithDatabaseCursorFactory(cf CursorFactory) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.CursorFactory = cf
	}
}

// WithDatabaseDecoder sets the decoder used by [Cursor.Scan].
func WithDatabaseDecoder(d Decoder) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Decoder = d
	}
}

// WithDatabaseNameGenerator sets the generator for unnamed inserts.
func WithDatabaseNameGenerator(g NameGenerator) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.NameGenerator = g
	}
}

// WithDatabaseInlineText inlines text attachments on working-tree loads.
func WithDatabaseInlineText(i bool) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.InlineText = i
	}
}

// WithDatabaseFileMode sets the mode of written files.
func WithDatabaseFileMode(m os.FileMode) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.FileMode = m
	}
}

// WithDatabaseDirMode sets the mode of created directories.
func WithDatabaseDirMode(m os.FileMode) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.DirMode = m
	}
}

// WithDatabaseLogger sets the logger.
func WithDatabaseLogger(l *slog.Logger) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Logger = l
	}
}

// WithDatabaseRecorder sets the metrics recorder.
func WithDatabaseRecorder(r Recorder) DatabaseOption {
	return func(do *DatabaseOptions) {
		do.Recorder = r
	}
}

// DatabaseOption configures the database through the functional options
// pattern.
type DatabaseOption func(*DatabaseOptions)

// DatabaseOptions contains the collaborators of a database.
type DatabaseOptions struct {
	Repository    Repository
	Classifier    Classifier
	Codec         Codec
	Matcher       Matcher
	Modifier      Modifier
	Comparer      Comparer
	CursorFactory CursorFactory
	Decoder       Decoder
	NameGenerator NameGenerator
	InlineText    bool
	FileMode      os.FileMode
	DirMode       os.FileMode
	Logger        *slog.Logger
	Recorder      Recorder
}

// WithRepositoryWorkTree sets the work tree the repository versions.
func WithRepositoryWorkTree(w WorkTree) RepositoryOption {
	return func(ro *RepositoryOptions) {
		ro.WorkTree = w
	}
}

// WithRepositoryHasher sets the hasher used to derive commit ids.
func WithRepositoryHasher(h Hasher) RepositoryOption {
	return func(ro *RepositoryOptions) {
		ro.Hasher = h
	}
}

// WithRepositoryTimeGetter sets the clock used to date commits.
func WithRepositoryTimeGetter(t TimeGetter) RepositoryOption {
	return func(ro *RepositoryOptions) {
		ro.TimeGetter = t
	}
}

// WithRepositoryFileMode sets the mode of files restored by Undo.
func WithRepositoryFileMode(m os.FileMode) RepositoryOption {
	return func(ro *RepositoryOptions) {
		ro.FileMode = m
	}
}

// WithRepositoryLogger sets the logger.
func WithRepositoryLogger(l *slog.Logger) RepositoryOption {
	return func(ro *RepositoryOptions) {
		ro.Logger = l
	}
}

// RepositoryOption configures a repository through the functional options
// pattern.
type RepositoryOption func(*RepositoryOptions)

// RepositoryOptions contains parameters for customizing a repository.
type RepositoryOptions struct {
	WorkTree   WorkTree
	Hasher     Hasher
	TimeGetter TimeGetter
	FileMode   os.FileMode
	Logger     *slog.Logger
}

// WithMatcherComparer sets the comparer used by the matcher.
func WithMatcherComparer(c Comparer) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.Comparer = c
	}
}

// WithMatcherFieldNavigator sets how the matcher reads fields.
func WithMatcherFieldNavigator(f FieldNavigator) MatcherOption {
	return func(mo *MatcherOptions) {
		mo.FieldNavigator = f
	}
}

// MatcherOption configures the matcher through the functional options
// pattern.
type MatcherOption func(*MatcherOptions)

// MatcherOptions contains the collaborators of the matcher.
type MatcherOptions struct {
	Comparer       Comparer
	FieldNavigator FieldNavigator
}

// WithModifierComparer sets the comparer used for array membership.
func WithModifierComparer(c Comparer) ModifierOption {
	return func(mo *ModifierOptions) {
		mo.Comparer = c
	}
}

// ModifierOption configures the update engine through the functional options
// pattern.
type ModifierOption func(*ModifierOptions)

// ModifierOptions contains the collaborators of the update engine.
type ModifierOptions struct {
	Comparer Comparer
}
